package scheduler

import "github.com/noah-isme/sma-block-scheduler/internal/models"

// BuildSections creates the course's sections at the chosen block. Section
// numbers run from 1 to the configured section count and each section copies
// the course's capacity bounds. Under the shared policy every section gets the
// first assigned room and lecturer; round robin walks both lists per section.
func BuildSections(course models.Course, block models.Block, policy DistributionPolicy) *models.CourseAssignment {
	n := course.SectionCount()
	assignment := &models.CourseAssignment{
		CourseCode: course.Code,
		Title:      course.Title,
		Sections:   make([]*models.Section, 0, n),
	}
	for i := 0; i < n; i++ {
		pick := 0
		if policy == DistributionRoundRobin {
			pick = i
		}
		assignment.Sections = append(assignment.Sections, &models.Section{
			CourseCode:    course.Code,
			SectionNumber: i + 1,
			Block:         block,
			Room:          nth(course.AssignedRooms, pick),
			Lecturer:      nth(course.LecturerIDs, pick),
			Students:      []string{},
			Capacity:      course.SectionSizes,
		})
	}
	return assignment
}

func nth(values []string, i int) *string {
	if len(values) == 0 {
		return nil
	}
	v := values[i%len(values)]
	return &v
}
