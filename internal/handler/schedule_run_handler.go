package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-block-scheduler/internal/dto"
	"github.com/noah-isme/sma-block-scheduler/internal/models"
	"github.com/noah-isme/sma-block-scheduler/internal/service"
	appErrors "github.com/noah-isme/sma-block-scheduler/pkg/errors"
	"github.com/noah-isme/sma-block-scheduler/pkg/response"
)

const (
	runModeAsync = "async"
	runModeSync  = "sync"
)

type scheduleRunService interface {
	Submit(ctx context.Context, req dto.CreateRunRequest, actorID string) (*models.ScheduleRun, error)
	RunSync(ctx context.Context, req dto.CreateRunRequest, actorID string) (*models.ScheduleRun, *models.ScheduleRunResult, error)
	Get(ctx context.Context, id string) (*models.ScheduleRun, error)
	List(ctx context.Context, query dto.ScheduleRunQuery) ([]models.ScheduleRun, *models.Pagination, error)
	Assignment(ctx context.Context, id string) (*models.Assignment, error)
	StudentSchedules(ctx context.Context, id string) ([]models.StudentSchedule, error)
	StudentSchedule(ctx context.Context, id, studentID string) (*models.StudentSchedule, error)
	LecturerSchedules(ctx context.Context, id string) ([]models.LecturerSchedule, error)
	Statistics(ctx context.Context, id string) (models.Statistics, error)
	Warnings(ctx context.Context, id string) ([]models.Warning, error)
	Export(ctx context.Context, id string, req dto.ExportRequest) (*dto.ExportResponse, error)
	Delete(ctx context.Context, id string) error
}

type downloadResolver interface {
	Resolve(token string) (*service.ExportDownload, error)
}

// ScheduleRunHandler exposes schedule run endpoints.
type ScheduleRunHandler struct {
	service   scheduleRunService
	downloads downloadResolver
}

// NewScheduleRunHandler constructs the handler.
func NewScheduleRunHandler(svc scheduleRunService, downloads downloadResolver) *ScheduleRunHandler {
	return &ScheduleRunHandler{service: svc, downloads: downloads}
}

// Create godoc
// @Summary Submit a catalog for scheduling
// @Description Runs are queued by default. With mode=sync the engine runs inline and the result is returned.
// @Tags ScheduleRuns
// @Accept json
// @Produce json
// @Param mode query string false "async (default) or sync"
// @Param payload body dto.CreateRunRequest true "Catalog and engine options"
// @Success 201 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /schedule-runs [post]
func (h *ScheduleRunHandler) Create(c *gin.Context) {
	mode := strings.ToLower(c.DefaultQuery("mode", runModeAsync))
	if mode != runModeAsync && mode != runModeSync {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "mode must be async or sync"))
		return
	}
	var req dto.CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule run payload"))
		return
	}

	if mode == runModeSync {
		run, result, err := h.service.RunSync(c.Request.Context(), req, actorID(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Created(c, dto.ScheduleRunResponse{Run: run, Result: result})
		return
	}

	run, err := h.service.Submit(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Location", fmt.Sprintf("%s/%s", strings.TrimSuffix(c.FullPath(), "/"), run.ID))
	response.Accepted(c, dto.ScheduleRunResponse{Run: run})
}

// List godoc
// @Summary List schedule runs
// @Tags ScheduleRuns
// @Produce json
// @Param status query string false "QUEUED, RUNNING, FINISHED or FAILED"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedule-runs [get]
func (h *ScheduleRunHandler) List(c *gin.Context) {
	var query dto.ScheduleRunQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	runs, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, pagination)
}

// Get godoc
// @Summary Get schedule run status
// @Tags ScheduleRuns
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /schedule-runs/{id} [get]
func (h *ScheduleRunHandler) Get(c *gin.Context) {
	run, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// Assignment godoc
// @Summary Course sections of a finished run
// @Tags ScheduleRuns
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /schedule-runs/{id}/assignment [get]
func (h *ScheduleRunHandler) Assignment(c *gin.Context) {
	assignment, err := h.service.Assignment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Students godoc
// @Summary Student timetables of a finished run
// @Tags ScheduleRuns
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /schedule-runs/{id}/students [get]
func (h *ScheduleRunHandler) Students(c *gin.Context) {
	schedules, err := h.service.StudentSchedules(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil, map[string]interface{}{"count": len(schedules)})
}

// Student godoc
// @Summary Timetable of one student
// @Tags ScheduleRuns
// @Produce json
// @Param id path string true "Run ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /schedule-runs/{id}/students/{studentId} [get]
func (h *ScheduleRunHandler) Student(c *gin.Context) {
	schedule, err := h.service.StudentSchedule(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Lecturers godoc
// @Summary Lecturer timetables of a finished run
// @Tags ScheduleRuns
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /schedule-runs/{id}/lecturers [get]
func (h *ScheduleRunHandler) Lecturers(c *gin.Context) {
	schedules, err := h.service.LecturerSchedules(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil, map[string]interface{}{"count": len(schedules)})
}

// Statistics godoc
// @Summary Fulfilment statistics of a finished run
// @Tags ScheduleRuns
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /schedule-runs/{id}/statistics [get]
func (h *ScheduleRunHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Warnings godoc
// @Summary Data-quality warnings of a finished run
// @Tags ScheduleRuns
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /schedule-runs/{id}/warnings [get]
func (h *ScheduleRunHandler) Warnings(c *gin.Context) {
	warnings, err := h.service.Warnings(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, warnings, nil, map[string]interface{}{"count": len(warnings)})
}

// Export godoc
// @Summary Render a view of a finished run
// @Tags ScheduleRuns
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Param payload body dto.ExportRequest true "View and format"
// @Success 201 {object} response.Envelope
// @Router /schedule-runs/{id}/exports [post]
func (h *ScheduleRunHandler) Export(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	exported, err := h.service.Export(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exported)
}

// Download godoc
// @Summary Download an export via signed token
// @Tags ScheduleRuns
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Router /downloads/{token} [get]
func (h *ScheduleRunHandler) Download(c *gin.Context) {
	if h.downloads == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "exports are not configured"))
		return
	}
	download, err := h.downloads.Resolve(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export"))
		return
	}
	response.Attachment(c, download.Filename, download.ContentType, info.Size(), download.File)
}

// Delete godoc
// @Summary Delete a schedule run and its exports
// @Tags ScheduleRuns
// @Param id path string true "Run ID"
// @Success 204
// @Router /schedule-runs/{id} [delete]
func (h *ScheduleRunHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
