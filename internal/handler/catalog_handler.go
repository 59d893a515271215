package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
	"github.com/noah-isme/sma-block-scheduler/pkg/response"
)

type catalogService interface {
	Decode(r io.Reader, contentType string) (*models.Catalog, error)
	Validate(c *models.Catalog) (*models.ValidationReport, error)
}

// CatalogHandler validates catalogs without scheduling them.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(svc catalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// Validate godoc
// @Summary Validate a catalog
// @Description Accepts JSON or YAML (application/yaml) and returns metadata and data-quality warnings.
// @Tags Catalog
// @Accept json
// @Accept application/yaml
// @Produce json
// @Param payload body models.Catalog true "Catalog"
// @Success 200 {object} response.Envelope
// @Router /catalog/validate [post]
func (h *CatalogHandler) Validate(c *gin.Context) {
	catalog, err := h.service.Decode(c.Request.Body, c.ContentType())
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.Validate(catalog)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil, map[string]interface{}{"warnings": len(report.Warnings)})
}
