package service

import (
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
	"github.com/noah-isme/sma-block-scheduler/internal/scheduler"
	"github.com/noah-isme/sma-block-scheduler/pkg/catalog"
	appErrors "github.com/noah-isme/sma-block-scheduler/pkg/errors"
)

// CatalogService decodes catalogs and reports their data-quality issues
// without scheduling anything.
type CatalogService struct {
	defaults scheduler.Options
	logger   *zap.Logger
}

// NewCatalogService constructs the service.
func NewCatalogService(defaults scheduler.Options, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{defaults: defaults, logger: logger}
}

// Decode reads a JSON or YAML catalog depending on contentType.
func (s *CatalogService) Decode(r io.Reader, contentType string) (*models.Catalog, error) {
	var (
		c   *models.Catalog
		err error
	)
	if strings.Contains(contentType, "yaml") {
		c, err = catalog.DecodeYAML(r)
	} else {
		c, err = catalog.DecodeJSON(r)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "catalog could not be decoded")
	}
	return c, nil
}

// Validate checks the catalog structure and builds the validation report.
func (s *CatalogService) Validate(c *models.Catalog) (*models.ValidationReport, error) {
	report, err := scheduler.ValidateCatalog(c, s.defaults)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrMalformedCatalog, err.Error())
	}
	s.logger.Debug("catalog validated",
		zap.Int("courses", report.Metadata.TotalCourses),
		zap.Int("students", report.Metadata.TotalStudents),
		zap.Int("warnings", len(report.Warnings)),
	)
	return report, nil
}
