package service

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-block-scheduler/pkg/errors"
	"github.com/noah-isme/sma-block-scheduler/pkg/export"
	"github.com/noah-isme/sma-block-scheduler/pkg/storage"
)

func newTestExportService(t *testing.T) (*ExportService, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	return NewExportService(store, signer, ExportConfig{APIPrefix: "/api/v1/", Retention: time.Hour}, zap.NewNop()), dir
}

func sampleRunResult() *models.ScheduleRunResult {
	room := "R1"
	lecturer := "L1"
	assignment := models.NewAssignment()
	assignment.Put(&models.CourseAssignment{
		CourseCode: "C1",
		Title:      "Algebra",
		Sections: []*models.Section{{
			CourseCode:    "C1",
			SectionNumber: 1,
			Block:         "1A",
			Room:          &room,
			Lecturer:      &lecturer,
			Students:      []string{"S1"},
			Capacity:      models.SectionSizes{Max: 2},
		}},
	})
	return &models.ScheduleRunResult{
		Blocks:     []models.Block{"1A", "2A"},
		Assignment: assignment,
		StudentSchedules: map[string]models.StudentSchedule{
			"S1": {StudentID: "S1", AssignedCourses: []models.AssignedCourse{{CourseCode: "C1", Title: "Algebra", Block: "1A", Room: &room, Lecturer: &lecturer, SectionNumber: 1, Type: models.RequestRequired}}},
		},
		LecturerSchedules: map[string]models.LecturerSchedule{
			"L1": {LecturerID: "L1", Blocks: map[models.Block]models.LecturerBlockEntry{"1A": {CourseCode: "C1", Title: "Algebra", Room: &room, EnrolledCount: 1, SectionNumber: 1}}},
		},
	}
}

func TestExportServiceGenerateAndResolve(t *testing.T) {
	svc, dir := newTestExportService(t)

	result, err := svc.Generate("run-1", sampleRunResult(), export.ViewStudents, export.FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "run-1/students.csv", result.RelativePath)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/downloads/"))
	assert.FileExists(t, filepath.Join(dir, "run-1", "students.csv"))

	download, err := svc.Resolve(result.Token)
	require.NoError(t, err)
	defer download.File.Close()

	assert.Equal(t, "text/csv", download.ContentType)
	assert.Equal(t, "run-1_students.csv", download.Filename)
	content, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(content), "S1")
	assert.Contains(t, string(content), "C1")
}

func TestExportServiceGeneratePDF(t *testing.T) {
	svc, dir := newTestExportService(t)

	result, err := svc.Generate("run-2", sampleRunResult(), export.ViewLecturers, export.FormatPDF)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "run-2", "lecturers.pdf"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))

	download, err := svc.Resolve(result.Token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "application/pdf", download.ContentType)
}

func TestExportServiceRejectsUnknownView(t *testing.T) {
	svc, _ := newTestExportService(t)

	_, err := svc.Generate("run-1", sampleRunResult(), export.View("rooms"), export.FormatCSV)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServiceResolveInvalidToken(t *testing.T) {
	svc, _ := newTestExportService(t)

	_, err := svc.Resolve("not-a-token")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)
}

func TestExportServiceDeleteRunAndCleanup(t *testing.T) {
	svc, dir := newTestExportService(t)
	_, err := svc.Generate("run-1", sampleRunResult(), export.ViewAssignment, export.FormatCSV)
	require.NoError(t, err)
	_, err = svc.Generate("run-2", sampleRunResult(), export.ViewAssignment, export.FormatCSV)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRun("run-1"))
	assert.NoDirExists(t, filepath.Join(dir, "run-1"))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "run-2", "assignment.csv"), old, old))

	assert.Equal(t, []string{"run-2/assignment.csv"}, svc.Cleanup())
}
