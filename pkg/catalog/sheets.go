package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/samber/lo"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
)

// Sheet file names expected by LoadSheets.
const (
	LecturersSheet = "lecturers.csv"
	RoomsSheet     = "rooms.csv"
	CoursesSheet   = "courses.csv"
	RequestsSheet  = "requests.csv"
)

type lecturerRow struct {
	LecturerID    string `csv:"Lecturer ID"`
	CourseCode    string `csv:"lecture Code"`
	SectionNumber string `csv:"Section number"`
	StartTerm     string `csv:"Start Term"`
}

type roomRow struct {
	RoomNumber    string `csv:"Room Number"`
	CourseCode    string `csv:"Course Code"`
	CourseTitle   string `csv:"Course Title"`
	SectionNumber string `csv:"Section number"`
	TermName      string `csv:"Term name"`
}

type courseRow struct {
	Code              string `csv:"Course code"`
	Title             string `csv:"Title"`
	Length            string `csv:"Length"`
	Priority          string `csv:"Priority"`
	AvailableBlocks   string `csv:"Available blocks"`
	UnavailableBlocks string `csv:"Unavailable blocks"`
	MinSize           string `csv:"Minimum section size"`
	TargetSize        string `csv:"Target section size"`
	MaxSize           string `csv:"Maximum section size"`
	Sections          string `csv:"Number of sections"`
	TotalCredits      string `csv:"Total credits"`
}

type requestRow struct {
	StudentID   string `csv:"student ID"`
	CollegeYear string `csv:"College Year"`
	CourseCode  string `csv:"Course code"`
	Title       string `csv:"Title"`
	Type        string `csv:"Type"`
	StartTerm   string `csv:"Request start term"`
	Length      string `csv:"Length"`
	Priority    string `csv:"Priority"`
	Department  string `csv:"Department(s)"`
	Credits     string `csv:"Credits"`
}

// LoadSheets reads the four sheet exports from dir and cleans them into a
// catalog: lecturers grouped by id, rooms grouped by number, requests grouped
// by student, and rooms and lecturers attached to their courses.
func LoadSheets(dir string, delim rune) (*models.Catalog, error) {
	var (
		lecturers []lecturerRow
		rooms     []roomRow
		courses   []courseRow
		requests  []requestRow
	)
	sheets := []struct {
		name string
		out  interface{}
	}{
		{LecturersSheet, &lecturers},
		{RoomsSheet, &rooms},
		{CoursesSheet, &courses},
		{RequestsSheet, &requests},
	}
	for _, sheet := range sheets {
		if err := readSheet(filepath.Join(dir, sheet.name), delim, sheet.out); err != nil {
			return nil, err
		}
	}
	return buildFromSheets(lecturers, rooms, courses, requests), nil
}

func readSheet(path string, delim rune, out interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open sheet %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return decodeSheet(f, delim, out, filepath.Base(path))
}

func decodeSheet(r io.Reader, delim rune, out interface{}, name string) error {
	reader := csv.NewReader(r)
	reader.Comma = delim
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	if err := gocsv.UnmarshalCSV(reader, out); err != nil {
		return fmt.Errorf("parse sheet %s: %w", name, err)
	}
	return nil
}

// buildFromSheets cleans raw sheet rows into a catalog.
func buildFromSheets(lecturerRows []lecturerRow, roomRows []roomRow, courseRows []courseRow, requestRows []requestRow) *models.Catalog {
	c := &models.Catalog{
		Blocks:    append([]models.Block(nil), models.DefaultBlocks...),
		Courses:   []models.Course{},
		Lecturers: []models.Lecturer{},
		Rooms:     []models.Room{},
		Students:  []models.Student{},
	}

	lecturersByCourse := map[string][]string{}
	lecturerIndex := map[string]int{}
	for _, row := range lecturerRows {
		id := strings.TrimSpace(row.LecturerID)
		code := strings.TrimSpace(row.CourseCode)
		if id == "" {
			continue
		}
		if !lo.Contains(lecturersByCourse[code], id) {
			lecturersByCourse[code] = append(lecturersByCourse[code], id)
		}
		i, ok := lecturerIndex[id]
		if !ok {
			i = len(c.Lecturers)
			lecturerIndex[id] = i
			c.Lecturers = append(c.Lecturers, models.Lecturer{ID: id, CourseCodes: []string{}, Sections: []models.LecturerSection{}})
		}
		lecturer := &c.Lecturers[i]
		if !lo.Contains(lecturer.CourseCodes, code) {
			lecturer.CourseCodes = append(lecturer.CourseCodes, code)
		}
		lecturer.Sections = append(lecturer.Sections, models.LecturerSection{
			CourseCode:    code,
			SectionNumber: parseInt(row.SectionNumber),
			StartTerm:     strings.TrimSpace(row.StartTerm),
		})
	}

	roomsByCourse := map[string][]string{}
	roomIndex := map[string]int{}
	for _, row := range roomRows {
		number := strings.TrimSpace(row.RoomNumber)
		code := strings.TrimSpace(row.CourseCode)
		if number == "" {
			continue
		}
		if !lo.Contains(roomsByCourse[code], number) {
			roomsByCourse[code] = append(roomsByCourse[code], number)
		}
		i, ok := roomIndex[number]
		if !ok {
			i = len(c.Rooms)
			roomIndex[number] = i
			c.Rooms = append(c.Rooms, models.Room{Number: number, AssignedCourses: []models.RoomOccupancy{}})
		}
		c.Rooms[i].AssignedCourses = append(c.Rooms[i].AssignedCourses, models.RoomOccupancy{
			CourseCode:    code,
			CourseTitle:   strings.TrimSpace(row.CourseTitle),
			SectionNumber: parseInt(row.SectionNumber),
			TermName:      strings.TrimSpace(row.TermName),
		})
	}

	for _, row := range courseRows {
		code := strings.TrimSpace(row.Code)
		if code == "" {
			continue
		}
		c.Courses = append(c.Courses, models.Course{
			Code:              code,
			Title:             strings.TrimSpace(row.Title),
			Length:            parseInt(row.Length),
			Priority:          strings.TrimSpace(row.Priority),
			AvailableBlocks:   ParseBlocks(row.AvailableBlocks),
			UnavailableBlocks: ParseBlocks(row.UnavailableBlocks),
			SectionSizes: models.SectionSizes{
				Min:    parseInt(row.MinSize),
				Target: parseInt(row.TargetSize),
				Max:    parseInt(row.MaxSize),
			},
			NumberOfSections: parseInt(row.Sections),
			TotalCredits:     parseFloat(row.TotalCredits),
			AssignedRooms:    append([]string{}, roomsByCourse[code]...),
			LecturerIDs:      append([]string{}, lecturersByCourse[code]...),
		})
	}

	studentIndex := map[string]int{}
	for _, row := range requestRows {
		id := strings.TrimSpace(row.StudentID)
		if id == "" {
			continue
		}
		i, ok := studentIndex[id]
		if !ok {
			i = len(c.Students)
			studentIndex[id] = i
			c.Students = append(c.Students, models.Student{ID: id, CollegeYear: strings.TrimSpace(row.CollegeYear), Requests: []models.Request{}})
		}
		c.Students[i].Requests = append(c.Students[i].Requests, models.Request{
			CourseCode:  strings.TrimSpace(row.CourseCode),
			CourseTitle: strings.TrimSpace(row.Title),
			Type:        models.RequestType(strings.TrimSpace(row.Type)),
			StartTerm:   strings.TrimSpace(row.StartTerm),
			Length:      parseInt(row.Length),
			Priority:    strings.TrimSpace(row.Priority),
			Department:  strings.TrimSpace(row.Department),
			Credits:     parseFloat(row.Credits),
		})
	}
	return c
}

// ParseBlocks splits a comma separated block list, dropping blanks.
func ParseBlocks(value string) []models.Block {
	blocks := []models.Block{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			blocks = append(blocks, models.Block(part))
		}
	}
	return blocks
}

// parseInt accepts integer or float spreadsheet cells; anything else reads as 0.
func parseInt(value string) int {
	return int(parseFloat(value))
}

func parseFloat(value string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return v
}
