package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignmentJSONKeepsPlacementOrder(t *testing.T) {
	assignment := NewAssignment()
	for _, code := range []string{"PHYS", "ART", "MATH"} {
		assignment.Put(&CourseAssignment{CourseCode: code, Sections: []*Section{
			{CourseCode: code, SectionNumber: 1, Block: "1A", Students: []string{"S1"}, Capacity: SectionSizes{Max: 2}},
		}})
	}

	data, err := json.Marshal(assignment)
	require.NoError(t, err)

	var decoded Assignment
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, []string{"PHYS", "ART", "MATH"}, decoded.Codes())
	course, ok := decoded.Get("ART")
	require.True(t, ok)
	require.Len(t, course.Sections, 1)
	assert.Equal(t, []string{"S1"}, course.Sections[0].Students)
}

func TestAssignmentJSONOrderSurvivesKeyReordering(t *testing.T) {
	// jsonb stores object keys sorted, not in insertion order.
	payload := `{
		"A": {"courseCode": "A", "sections": [], "placement": 3},
		"B": {"courseCode": "B", "sections": [], "placement": 1},
		"C": {"courseCode": "C", "sections": [], "placement": 2}
	}`

	var decoded Assignment
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))

	assert.Equal(t, []string{"B", "C", "A"}, decoded.Codes())
}

func TestAssignmentJSONWithoutPlacementFallsBackToCode(t *testing.T) {
	payload := `{"Z": {"sections": []}, "M": {"sections": []}, "Q": {"sections": [], "placement": 1}}`

	var decoded Assignment
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))

	assert.Equal(t, []string{"Q", "M", "Z"}, decoded.Codes())
	course, ok := decoded.Get("M")
	require.True(t, ok)
	assert.Equal(t, "M", course.CourseCode)
}

func TestEmptyAssignmentMarshalsToObject(t *testing.T) {
	data, err := json.Marshal(NewAssignment())
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}
