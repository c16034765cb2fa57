package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"lakehouse-gateway/internal/model"
	"lakehouse-gateway/internal/query"
	"lakehouse-gateway/internal/service"
	"lakehouse-gateway/internal/utils"
)

// arrowContentType is the media type for Arrow IPC stream responses.
const arrowContentType = "application/vnd.apache.arrow.stream"

type QueryController struct {
	queryService service.QueryService
	validator    *validator.Validate
}

func NewQueryController(queryService service.QueryService) *QueryController {
	return &QueryController{
		queryService: queryService,
		validator:    validator.New(),
	}
}

// OpenRowSet godoc
// @Summary Read table files by location
// @Description Reads a table directly from storage without a catalog entry.
// The bulk path is resolved against the named data source root when one is
// given. Only the DELTA format is supported, and the read always sees the
// latest committed version.
// Responses are JSON by default; clients that send
// `Accept: application/vnd.apache.arrow.stream` receive the rows as an
// Arrow IPC stream instead.
//
// @Tags queries
// @Accept json
// @Produce json
// @Param request body model.RowSetRequest true "Row-set request"
// @Success 200 {object} response.StandardResponse{data=model.RowSetResponse}
// @Failure 400 {object} response.StandardResponse
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/openrowset [post]
func (qc *QueryController) OpenRowSet(c *gin.Context) {
	var req model.RowSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, utils.NewInvalidRequestError(err.Error()))
		return
	}
	if err := qc.validator.Struct(&req); err != nil {
		sendError(c, utils.NewValidationError(err.Error()))
		return
	}

	result, err := qc.queryService.OpenRowSet(c.Request.Context(), &req)
	if err != nil {
		sendError(c, err)
		return
	}

	if strings.Contains(c.GetHeader("Accept"), arrowContentType) {
		payload, err := query.EncodeIPC(&result.Schema, result.Rows)
		if err != nil {
			sendError(c, err)
			return
		}
		c.Header("X-Table-Version", strconv.FormatInt(result.Version, 10))
		c.Data(http.StatusOK, arrowContentType, payload)
		return
	}

	sendData(c, http.StatusOK, result)
}
