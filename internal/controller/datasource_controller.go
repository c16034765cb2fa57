package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"lakehouse-gateway/internal/model"
	"lakehouse-gateway/internal/service"
	"lakehouse-gateway/internal/utils"
)

// DataSourceController serves external data source registrations used
// as roots for row-set queries.
type DataSourceController struct {
	service   service.CatalogService
	validator *validator.Validate
}

func NewDataSourceController(service service.CatalogService) *DataSourceController {
	return &DataSourceController{
		service:   service,
		validator: validator.New(),
	}
}

// CreateDataSource godoc
// @Summary Register an external data source
// @Description Names a storage root so row-set queries can reference files relative to it
// @Tags datasources
// @Accept json
// @Produce json
// @Param request body model.CreateDataSourceRequest true "Create data source request"
// @Success 201 {object} response.StandardResponse{data=model.ExternalDataSource}
// @Failure 409 {object} response.StandardResponse
// @Router /api/v1/datasources [post]
func (dc *DataSourceController) CreateDataSource(c *gin.Context) {
	var req model.CreateDataSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, utils.NewInvalidRequestError(err.Error()))
		return
	}
	if err := dc.validator.Struct(&req); err != nil {
		sendError(c, utils.NewValidationError(err.Error()))
		return
	}

	source, err := dc.service.CreateDataSource(c.Request.Context(), &req)
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusCreated, source)
}

// GetDataSource godoc
// @Summary Get an external data source by name
// @Tags datasources
// @Produce json
// @Param name path string true "Data source name"
// @Success 200 {object} response.StandardResponse{data=model.ExternalDataSource}
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/datasources/{name} [get]
func (dc *DataSourceController) GetDataSource(c *gin.Context) {
	source, err := dc.service.GetDataSource(c.Request.Context(), c.Param("name"))
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, source)
}

// ListDataSources godoc
// @Summary List external data sources
// @Tags datasources
// @Produce json
// @Success 200 {object} response.StandardResponse{data=[]model.ExternalDataSource}
// @Router /api/v1/datasources [get]
func (dc *DataSourceController) ListDataSources(c *gin.Context) {
	sources, err := dc.service.ListDataSources(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, sources)
}

// DeleteDataSource godoc
// @Summary Remove an external data source
// @Tags datasources
// @Produce json
// @Param name path string true "Data source name"
// @Success 200 {object} response.StandardResponse
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/datasources/{name} [delete]
func (dc *DataSourceController) DeleteDataSource(c *gin.Context) {
	if err := dc.service.DropDataSource(c.Request.Context(), c.Param("name")); err != nil {
		sendError(c, err)
		return
	}
	sendMessage(c, http.StatusOK, "Data source deleted successfully")
}
