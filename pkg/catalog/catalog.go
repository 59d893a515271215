// Package catalog loads scheduling catalogs from JSON, YAML or a directory of
// spreadsheet CSV exports into the normalized models.Catalog shape.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
)

type documentMetadata struct {
	Blocks []models.Block `json:"blocks" yaml:"blocks"`
}

// document mirrors the cleaned-data file. Blocks may appear at the top level
// or inside metadata; entity sets left out of the file stay nil.
type document struct {
	Metadata  *documentMetadata `json:"metadata" yaml:"metadata"`
	Blocks    []models.Block    `json:"blocks" yaml:"blocks"`
	Courses   []models.Course   `json:"courses" yaml:"courses"`
	Lecturers []models.Lecturer `json:"lecturers" yaml:"lecturers"`
	Rooms     []models.Room     `json:"rooms" yaml:"rooms"`
	Students  []models.Student  `json:"students" yaml:"students"`
}

func (d document) catalog() *models.Catalog {
	blocks := d.Blocks
	if len(blocks) == 0 && d.Metadata != nil {
		blocks = d.Metadata.Blocks
	}
	if len(blocks) == 0 {
		blocks = append([]models.Block(nil), models.DefaultBlocks...)
	}
	return &models.Catalog{
		Blocks:    blocks,
		Courses:   d.Courses,
		Lecturers: d.Lecturers,
		Rooms:     d.Rooms,
		Students:  d.Students,
	}
}

// DecodeJSON reads a catalog in the cleaned-data JSON shape.
func DecodeJSON(r io.Reader) (*models.Catalog, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog json: %w", err)
	}
	return doc.catalog(), nil
}

// DecodeYAML reads a catalog with the same field names as the JSON shape.
func DecodeYAML(r io.Reader) (*models.Catalog, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog yaml: %w", err)
	}
	return doc.catalog(), nil
}

// LoadFile loads a catalog from a JSON or YAML file, or from a directory of
// sheet exports.
func LoadFile(path string) (*models.Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat catalog %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadSheets(path, ',')
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(f)
	case ".json":
		return DecodeJSON(f)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", filepath.Ext(path))
	}
}

// BuildMetadata summarises a catalog. Students, lecturers and rooms are counted
// by unique id.
func BuildMetadata(c *models.Catalog) models.CatalogMetadata {
	meta := models.CatalogMetadata{
		Blocks:       []models.Block{},
		RequestTypes: append([]models.RequestType(nil), models.RequestTypes...),
		GeneratedOn:  time.Now().UTC(),
	}
	if c == nil {
		return meta
	}
	meta.TotalStudents = len(lo.UniqBy(c.Students, func(s models.Student) string { return s.ID }))
	meta.TotalLecturers = len(lo.UniqBy(c.Lecturers, func(l models.Lecturer) string { return l.ID }))
	meta.TotalRooms = len(lo.UniqBy(c.Rooms, func(r models.Room) string { return r.Number }))
	meta.TotalCourses = len(c.Courses)
	meta.TotalRequests = lo.SumBy(c.Students, func(s models.Student) int { return len(s.Requests) })
	if len(c.Blocks) > 0 {
		meta.Blocks = append(meta.Blocks, c.Blocks...)
	}
	return meta
}
