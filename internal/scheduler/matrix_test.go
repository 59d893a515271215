package scheduler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
)

func TestConstraintMatrixInitialCompatibility(t *testing.T) {
	courses := []models.Course{
		newCourse("A", blocks("1A", "3"), 5),
		newCourse("B", nil, 5),
	}
	matrix := NewConstraintMatrix(courses, models.DefaultBlocks)

	for _, block := range models.DefaultBlocks {
		cell, ok := matrix.Cell("A", block)
		require.True(t, ok)
		expected := 0
		if block == "1A" || block == "3" {
			expected = 1
		}
		assert.Equal(t, expected, cell.Compatibility, "block %s", block)
		assert.Empty(t, cell.TeacherConflicts)
		assert.Empty(t, cell.RoomConflicts)

		cell, ok = matrix.Cell("B", block)
		require.True(t, ok)
		assert.Equal(t, 0, cell.Compatibility)
	}

	row, ok := matrix.Row("A")
	require.True(t, ok)
	assert.Len(t, row, len(models.DefaultBlocks))
	_, ok = matrix.Cell("missing", "1A")
	assert.False(t, ok)
}

func TestConstraintMatrixRecordsSharedLecturerConflict(t *testing.T) {
	courses := []models.Course{
		newCourse("A", blocks("2A"), 5, withLecturers("L1")),
		newCourse("B", blocks("2A", "3"), 5, withLecturers("L1", "L2")),
		newCourse("C", blocks("2A"), 5, withLecturers("L3")),
	}
	matrix := NewConstraintMatrix(courses, models.DefaultBlocks)

	matrix.RecordPlacement("A", "2A")
	matrix.RecordPlacement("A", "2A")

	cell, _ := matrix.Cell("B", "2A")
	assert.Equal(t, []string{"L1"}, cell.TeacherConflicts)
	assert.Equal(t, 1, cell.Compatibility)

	other, _ := matrix.Cell("B", "3")
	assert.Empty(t, other.TeacherConflicts)

	own, _ := matrix.Cell("A", "2A")
	assert.Empty(t, own.TeacherConflicts)

	unrelated, _ := matrix.Cell("C", "2A")
	assert.Empty(t, unrelated.TeacherConflicts)
	assert.Equal(t, 0, matrix.ConflictCount("C", "2A"))
}

func TestConstraintMatrixRecordsSharedRoomConflict(t *testing.T) {
	courses := []models.Course{
		newCourse("A", blocks("1B"), 5, withRooms("R1")),
		newCourse("B", blocks("1B"), 5, withRooms("R1")),
	}
	matrix := NewConstraintMatrix(courses, models.DefaultBlocks)

	matrix.RecordPlacement("A", "1B")

	cell, _ := matrix.Cell("B", "1B")
	assert.Equal(t, []string{"R1"}, cell.RoomConflicts)
	assert.Equal(t, 1, matrix.ConflictCount("B", "1B"))
}

func TestConstraintMatrixOneCellPerPair(t *testing.T) {
	courses := []models.Course{
		newCourse("A", blocks("1A"), 5),
		newCourse("A", blocks("1B"), 5),
	}
	matrix := NewConstraintMatrix(courses, blocks("1A", "1B", "1A"))

	assert.Equal(t, blocks("1A", "1B"), matrix.Blocks())
	row, ok := matrix.Row("A")
	require.True(t, ok)
	assert.Len(t, row, 2)
	assert.True(t, matrix.Compatible("A", "1A"))
	assert.False(t, matrix.Compatible("A", "1B"))

	data, err := json.Marshal(matrix)
	require.NoError(t, err)
	assert.JSONEq(t, `{"A":{"1A":{"compatibilityScore":1,"teacherConflicts":[],"roomConflicts":[]},"1B":{"compatibilityScore":0,"teacherConflicts":[],"roomConflicts":[]}}}`, string(data))
}
