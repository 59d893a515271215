package scheduler

import (
	"encoding/json"

	"github.com/samber/lo"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
)

// ConstraintCell is the state of one (course, block) pair.
type ConstraintCell struct {
	Compatibility    int      `json:"compatibilityScore"`
	TeacherConflicts []string `json:"teacherConflicts"`
	RoomConflicts    []string `json:"roomConflicts"`
}

// ConstraintMatrix tracks block compatibility and accumulated lecturer and room
// conflicts for every course. It holds exactly one cell per (course, block).
type ConstraintMatrix struct {
	blocks     []models.Block
	blockIndex map[models.Block]int
	codes      []string
	rows       map[string][]ConstraintCell
	lecturers  map[string][]string
	rooms      map[string][]string
}

// NewConstraintMatrix initialises a cell for every (course, block) pair. A cell
// is compatible when the block is listed among the course's available blocks.
func NewConstraintMatrix(courses []models.Course, blocks []models.Block) *ConstraintMatrix {
	m := &ConstraintMatrix{
		blocks:     lo.Uniq(blocks),
		blockIndex: make(map[models.Block]int, len(blocks)),
		rows:       make(map[string][]ConstraintCell, len(courses)),
		lecturers:  make(map[string][]string, len(courses)),
		rooms:      make(map[string][]string, len(courses)),
	}
	for i, block := range m.blocks {
		m.blockIndex[block] = i
	}
	for _, course := range courses {
		if _, ok := m.rows[course.Code]; ok {
			continue
		}
		row := make([]ConstraintCell, len(m.blocks))
		for i, block := range m.blocks {
			if course.IsAvailable(block) {
				row[i].Compatibility = 1
			}
		}
		m.codes = append(m.codes, course.Code)
		m.rows[course.Code] = row
		m.lecturers[course.Code] = lo.Uniq(course.LecturerIDs)
		m.rooms[course.Code] = lo.Uniq(course.AssignedRooms)
	}
	return m
}

// Blocks returns the enumerated block set in declaration order.
func (m *ConstraintMatrix) Blocks() []models.Block {
	return append([]models.Block(nil), m.blocks...)
}

// Row returns a copy of the cells of a course in block order.
func (m *ConstraintMatrix) Row(code string) ([]ConstraintCell, bool) {
	row, ok := m.rows[code]
	if !ok {
		return nil, false
	}
	out := make([]ConstraintCell, len(row))
	for i, cell := range row {
		out[i] = ConstraintCell{
			Compatibility:    cell.Compatibility,
			TeacherConflicts: append([]string(nil), cell.TeacherConflicts...),
			RoomConflicts:    append([]string(nil), cell.RoomConflicts...),
		}
	}
	return out, true
}

// Cell returns a copy of the cell for a (course, block) pair.
func (m *ConstraintMatrix) Cell(code string, block models.Block) (ConstraintCell, bool) {
	row, ok := m.Row(code)
	if !ok {
		return ConstraintCell{}, false
	}
	i, ok := m.blockIndex[block]
	if !ok {
		return ConstraintCell{}, false
	}
	return row[i], true
}

// Compatible reports whether a course may be placed at a block.
func (m *ConstraintMatrix) Compatible(code string, block models.Block) bool {
	row, ok := m.rows[code]
	if !ok {
		return false
	}
	i, ok := m.blockIndex[block]
	return ok && row[i].Compatibility == 1
}

// ConflictCount returns the number of lecturer and room conflicts at a cell.
func (m *ConstraintMatrix) ConflictCount(code string, block models.Block) int {
	row, ok := m.rows[code]
	if !ok {
		return 0
	}
	i, ok := m.blockIndex[block]
	if !ok {
		return 0
	}
	return len(row[i].TeacherConflicts) + len(row[i].RoomConflicts)
}

// RecordPlacement registers that a course was placed at a block. Every other
// course sharing a lecturer or room gains that lecturer or room in its
// conflict lists at the block. Compatibility scores are never lowered.
func (m *ConstraintMatrix) RecordPlacement(code string, block models.Block) {
	i, ok := m.blockIndex[block]
	if !ok {
		return
	}
	placedLecturers := m.lecturers[code]
	placedRooms := m.rooms[code]
	for _, other := range m.codes {
		if other == code {
			continue
		}
		cell := &m.rows[other][i]
		for _, lecturer := range lo.Intersect(placedLecturers, m.lecturers[other]) {
			if !lo.Contains(cell.TeacherConflicts, lecturer) {
				cell.TeacherConflicts = append(cell.TeacherConflicts, lecturer)
			}
		}
		for _, room := range lo.Intersect(placedRooms, m.rooms[other]) {
			if !lo.Contains(cell.RoomConflicts, room) {
				cell.RoomConflicts = append(cell.RoomConflicts, room)
			}
		}
	}
}

// MarshalJSON encodes the matrix as course code → block → cell.
func (m *ConstraintMatrix) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[models.Block]ConstraintCell, len(m.codes))
	for _, code := range m.codes {
		row := m.rows[code]
		cells := make(map[models.Block]ConstraintCell, len(row))
		for i, block := range m.blocks {
			cell := row[i]
			if cell.TeacherConflicts == nil {
				cell.TeacherConflicts = []string{}
			}
			if cell.RoomConflicts == nil {
				cell.RoomConflicts = []string{}
			}
			cells[block] = cell
		}
		out[code] = cells
	}
	return json.Marshal(out)
}
