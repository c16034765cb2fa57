package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"lakehouse-gateway/internal/model"
	"lakehouse-gateway/internal/service"
	"lakehouse-gateway/internal/utils"
)

// DatabaseController serves catalog database and table endpoints.
type DatabaseController struct {
	service   service.CatalogService
	validator *validator.Validate
}

func NewDatabaseController(service service.CatalogService) *DatabaseController {
	return &DatabaseController{
		service:   service,
		validator: validator.New(),
	}
}

// CreateDatabase godoc
// @Summary Create a database
// @Description Registers a database namespace with a managed storage location
// @Tags catalog
// @Accept json
// @Produce json
// @Param request body model.CreateDatabaseRequest true "Create database request"
// @Success 201 {object} response.StandardResponse{data=model.CatalogDatabase}
// @Failure 409 {object} response.StandardResponse
// @Router /api/v1/databases [post]
func (dc *DatabaseController) CreateDatabase(c *gin.Context) {
	var req model.CreateDatabaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, utils.NewInvalidRequestError(err.Error()))
		return
	}
	if err := dc.validator.Struct(&req); err != nil {
		sendError(c, utils.NewValidationError(err.Error()))
		return
	}

	db, err := dc.service.CreateDatabase(c.Request.Context(), &req)
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusCreated, db)
}

// GetDatabase godoc
// @Summary Get a database by name
// @Tags catalog
// @Produce json
// @Param name path string true "Database name"
// @Success 200 {object} response.StandardResponse{data=model.CatalogDatabase}
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/databases/{name} [get]
func (dc *DatabaseController) GetDatabase(c *gin.Context) {
	db, err := dc.service.GetDatabase(c.Request.Context(), c.Param("name"))
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, db)
}

// ListDatabases godoc
// @Summary List databases
// @Tags catalog
// @Produce json
// @Success 200 {object} response.StandardResponse{data=[]model.CatalogDatabase}
// @Router /api/v1/databases [get]
func (dc *DatabaseController) ListDatabases(c *gin.Context) {
	dbs, err := dc.service.ListDatabases(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, dbs)
}

// DropDatabase godoc
// @Summary Drop a database
// @Description Drops a database. A non-empty database is refused unless cascade=true
// @Tags catalog
// @Produce json
// @Param name path string true "Database name"
// @Param cascade query bool false "Drop contained tables too"
// @Success 200 {object} response.StandardResponse
// @Failure 409 {object} response.StandardResponse
// @Router /api/v1/databases/{name} [delete]
func (dc *DatabaseController) DropDatabase(c *gin.Context) {
	cascade := c.Query("cascade") == "true"
	if err := dc.service.DropDatabase(c.Request.Context(), c.Param("name"), cascade); err != nil {
		sendError(c, err)
		return
	}
	sendMessage(c, http.StatusOK, "Database dropped successfully")
}

// CreateTable godoc
// @Summary Create a catalog table
// @Description Creates a managed table under the database location, or binds an external table to an existing path
// @Tags catalog
// @Accept json
// @Produce json
// @Param name path string true "Database name"
// @Param request body model.CreateTableRequest true "Create table request"
// @Success 201 {object} response.StandardResponse{data=model.CatalogEntry}
// @Failure 409 {object} response.StandardResponse
// @Router /api/v1/databases/{name}/tables [post]
func (dc *DatabaseController) CreateTable(c *gin.Context) {
	var req model.CreateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, utils.NewInvalidRequestError(err.Error()))
		return
	}
	req.Database = c.Param("name")
	if err := dc.validator.Struct(&req); err != nil {
		sendError(c, utils.NewValidationError(err.Error()))
		return
	}

	entry, err := dc.service.CreateTable(c.Request.Context(), &req)
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusCreated, entry)
}

// GetTable godoc
// @Summary Get a catalog table entry
// @Tags catalog
// @Produce json
// @Param name path string true "Database name"
// @Param table path string true "Table name"
// @Success 200 {object} response.StandardResponse{data=model.CatalogEntry}
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/databases/{name}/tables/{table} [get]
func (dc *DatabaseController) GetTable(c *gin.Context) {
	entry, err := dc.service.GetTable(c.Request.Context(), c.Param("name"), c.Param("table"))
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, entry)
}

// ListTables godoc
// @Summary List tables of a database
// @Tags catalog
// @Produce json
// @Param name path string true "Database name"
// @Success 200 {object} response.StandardResponse{data=[]model.CatalogEntry}
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/databases/{name}/tables [get]
func (dc *DatabaseController) ListTables(c *gin.Context) {
	entries, err := dc.service.ListTables(c.Request.Context(), c.Param("name"))
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, entries)
}

// DropTable godoc
// @Summary Drop a catalog table
// @Description Drops a table entry. Managed table data is deleted, external data stays in place
// @Tags catalog
// @Produce json
// @Param name path string true "Database name"
// @Param table path string true "Table name"
// @Success 200 {object} response.StandardResponse
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/databases/{name}/tables/{table} [delete]
func (dc *DatabaseController) DropTable(c *gin.Context) {
	if err := dc.service.DropTable(c.Request.Context(), c.Param("name"), c.Param("table")); err != nil {
		sendError(c, err)
		return
	}
	sendMessage(c, http.StatusOK, "Table dropped successfully")
}
