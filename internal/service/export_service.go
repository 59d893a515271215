package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-block-scheduler/pkg/errors"
	"github.com/noah-isme/sma-block-scheduler/pkg/export"
	"github.com/noah-isme/sma-block-scheduler/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	DeleteDir(dir string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	Retention       time.Duration
	CleanupInterval time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	View         export.View
	Format       export.Format
	ExpiresAt    time.Time
}

// ExportDownload is an opened export ready to stream.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportService renders run views and hands out signed download links.
type ExportService struct {
	storage fileStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
	return &ExportService{storage: storage, signer: signer, logger: logger, cfg: cfg}
}

// Generate renders one view of a finished run and stores it under the run's directory.
func (s *ExportService) Generate(runID string, result *models.ScheduleRunResult, view export.View, format export.Format) (*ExportResult, error) {
	if result == nil {
		return nil, fmt.Errorf("run result is nil")
	}
	renderer, err := export.NewRenderer(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")
	}

	var dataset export.Dataset
	switch view {
	case export.ViewStudents:
		dataset = export.StudentDataset(result.StudentSchedules)
	case export.ViewLecturers:
		dataset = export.LecturerDataset(result.LecturerSchedules, result.Blocks)
	case export.ViewAssignment:
		dataset = export.AssignmentDataset(result.Assignment)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export view %q", view))
	}

	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	relPath, err := s.storage.Save(path.Join(runID, fmt.Sprintf("%s.%s", view, renderer.Extension())), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(runID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("export generated", zap.String("run_id", runID), zap.String("view", string(view)), zap.String("format", string(format)))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/downloads/%s", prefix, token),
		View:         view,
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// Resolve validates a download token and opens the referenced file.
func (s *ExportService) Resolve(token string) (*ExportDownload, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, "download link expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, appErrors.ErrInvalidToken.Message)
	}
	file, err := s.storage.Open(claims.Path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file not found")
	}

	contentType := "application/octet-stream"
	switch strings.TrimPrefix(path.Ext(claims.Path), ".") {
	case string(export.FormatCSV):
		contentType = "text/csv"
	case string(export.FormatPDF):
		contentType = "application/pdf"
	}
	return &ExportDownload{
		File:        file,
		Filename:    fmt.Sprintf("%s_%s", claims.RunID, path.Base(claims.Path)),
		ContentType: contentType,
		ExpiresAt:   claims.ExpiresAt,
	}, nil
}

// DeleteRun removes every export of a run.
func (s *ExportService) DeleteRun(runID string) error {
	return s.storage.DeleteDir(runID)
}

// StartCleanup boots a goroutine that purges exports older than the retention period.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}

// Cleanup removes exports older than the retention period.
func (s *ExportService) Cleanup() []string {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.Retention)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return nil
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
	return deleted
}
