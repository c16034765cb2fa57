package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"lakehouse-gateway/internal/model"
	"lakehouse-gateway/internal/service"
	"lakehouse-gateway/internal/utils"
)

type TableController struct {
	service   service.TableService
	validator *validator.Validate
}

func NewTableController(service service.TableService) *TableController {
	return &TableController{
		service:   service,
		validator: validator.New(),
	}
}

// Write godoc
// @Summary Write rows to a table
// @Description Writes a dataset to a table location in overwrite, append, or errorifexists mode
// @Tags tables
// @Accept json
// @Produce json
// @Param request body model.WriteRequest true "Write request"
// @Success 200 {object} response.StandardResponse{data=model.WriteResponse}
// @Failure 400 {object} response.StandardResponse
// @Failure 409 {object} response.StandardResponse
// @Router /api/v1/tables/write [post]
func (tc *TableController) Write(c *gin.Context) {
	var req model.WriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, utils.NewInvalidRequestError(err.Error()))
		return
	}
	if err := tc.validator.Struct(&req); err != nil {
		sendError(c, utils.NewValidationError(err.Error()))
		return
	}
	if !model.IsValidWriteMode(string(req.Mode)) {
		sendError(c, utils.NewValidationError("mode must be overwrite, append, or errorifexists"))
		return
	}

	result, err := tc.service.Write(c.Request.Context(), &req)
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, result)
}

// Read godoc
// @Summary Read a table snapshot
// @Description Reads a table at the latest version or a historical one via versionAsOf or timestampAsOf
// @Tags tables
// @Accept json
// @Produce json
// @Param request body model.ReadRequest true "Read request"
// @Success 200 {object} response.StandardResponse{data=model.ReadResponse}
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/tables/read [post]
func (tc *TableController) Read(c *gin.Context) {
	var req model.ReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, utils.NewInvalidRequestError(err.Error()))
		return
	}
	if err := tc.validator.Struct(&req); err != nil {
		sendError(c, utils.NewValidationError(err.Error()))
		return
	}
	if req.VersionAsOf != nil && req.TimestampAsOf != nil {
		sendError(c, utils.NewValidationError("versionAsOf and timestampAsOf are mutually exclusive"))
		return
	}

	result, err := tc.service.Read(c.Request.Context(), &req)
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, result)
}

// Update godoc
// @Summary Update rows matching a condition
// @Tags tables
// @Accept json
// @Produce json
// @Param request body model.UpdateRequest true "Update request"
// @Success 200 {object} response.StandardResponse{data=model.MutationResponse}
// @Router /api/v1/tables/update [post]
func (tc *TableController) Update(c *gin.Context) {
	var req model.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, utils.NewInvalidRequestError(err.Error()))
		return
	}
	if err := tc.validator.Struct(&req); err != nil {
		sendError(c, utils.NewValidationError(err.Error()))
		return
	}

	result, err := tc.service.Update(c.Request.Context(), &req)
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, result)
}

// Delete godoc
// @Summary Delete rows matching a condition
// @Tags tables
// @Accept json
// @Produce json
// @Param request body model.DeleteRequest true "Delete request"
// @Success 200 {object} response.StandardResponse{data=model.MutationResponse}
// @Router /api/v1/tables/delete [post]
func (tc *TableController) Delete(c *gin.Context) {
	var req model.DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, utils.NewInvalidRequestError(err.Error()))
		return
	}
	if err := tc.validator.Struct(&req); err != nil {
		sendError(c, utils.NewValidationError(err.Error()))
		return
	}

	result, err := tc.service.Delete(c.Request.Context(), &req)
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, result)
}

// History godoc
// @Summary List a table's commit history
// @Tags tables
// @Produce json
// @Param location query string true "Table location"
// @Param limit query int false "Maximum commits to return, newest first"
// @Success 200 {object} response.StandardResponse{data=model.HistoryResponse}
// @Router /api/v1/tables/history [get]
func (tc *TableController) History(c *gin.Context) {
	location := c.Query("location")
	if location == "" {
		sendError(c, utils.NewValidationError("location query parameter is required"))
		return
	}
	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			sendError(c, utils.NewValidationError("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	result, err := tc.service.History(c.Request.Context(), location, limit)
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, result)
}

// Details godoc
// @Summary Describe a table
// @Tags tables
// @Produce json
// @Param location query string true "Table location"
// @Success 200 {object} response.StandardResponse{data=model.TableDetails}
// @Router /api/v1/tables/details [get]
func (tc *TableController) Details(c *gin.Context) {
	location := c.Query("location")
	if location == "" {
		sendError(c, utils.NewValidationError("location query parameter is required"))
		return
	}

	result, err := tc.service.Details(c.Request.Context(), location)
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, result)
}
