package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"lakehouse-gateway/internal/model"
	"lakehouse-gateway/internal/service"
	"lakehouse-gateway/internal/utils"
)

type StreamController struct {
	service   service.StreamingService
	validator *validator.Validate
}

func NewStreamController(service service.StreamingService) *StreamController {
	return &StreamController{
		service:   service,
		validator: validator.New(),
	}
}

// StartStream godoc
// @Summary Start a micro-batch ingest stream
// @Description Starts a named stream that pulls from a folder or table source and appends to a target table
// @Tags streams
// @Accept json
// @Produce json
// @Param request body model.StartStreamRequest true "Start stream request"
// @Success 201 {object} response.StandardResponse{data=model.StreamStatus}
// @Failure 409 {object} response.StandardResponse
// @Router /api/v1/streams [post]
func (sc *StreamController) StartStream(c *gin.Context) {
	var req model.StartStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, utils.NewInvalidRequestError(err.Error()))
		return
	}
	if err := sc.validator.Struct(&req); err != nil {
		sendError(c, utils.NewValidationError(err.Error()))
		return
	}

	status, err := sc.service.StartStream(c.Request.Context(), &req)
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusCreated, status)
}

// StopStream godoc
// @Summary Stop a running stream
// @Description Stops the stream, leaving its checkpoint so a later start resumes without re-delivery
// @Tags streams
// @Produce json
// @Param name path string true "Stream name"
// @Success 200 {object} response.StandardResponse{data=model.StreamStatus}
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/streams/{name}/stop [post]
func (sc *StreamController) StopStream(c *gin.Context) {
	status, err := sc.service.StopStream(c.Request.Context(), c.Param("name"))
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, status)
}

// GetStream godoc
// @Summary Get a stream's status
// @Tags streams
// @Produce json
// @Param name path string true "Stream name"
// @Success 200 {object} response.StandardResponse{data=model.StreamStatus}
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/streams/{name} [get]
func (sc *StreamController) GetStream(c *gin.Context) {
	status, err := sc.service.GetStatus(c.Request.Context(), c.Param("name"))
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, status)
}

// ListStreams godoc
// @Summary List registered streams
// @Tags streams
// @Produce json
// @Success 200 {object} response.StandardResponse{data=[]model.StreamStatus}
// @Router /api/v1/streams [get]
func (sc *StreamController) ListStreams(c *gin.Context) {
	statuses, err := sc.service.ListStreams(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, statuses)
}
