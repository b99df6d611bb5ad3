package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeInstructorKey(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{in: "O'Brien,  Mary ", expected: "obrien mary"},
		{in: "obrien mary", expected: "obrien mary"},
		{in: "Smith, John", expected: "smith john"},
		{in: "smith john", expected: "smith john"},
		{in: "\tGarcia-Lopez,\nAna  M.", expected: "garcialopez ana m"},
		{in: "   ", expected: ""},
		{in: "", expected: ""},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, NormalizeInstructorKey(test.in), test.in)
	}

	require.Equal(t, NormalizeInstructorKey("O'Brien,  Mary "), NormalizeInstructorKey("obrien mary"))
}

func TestSearchName(t *testing.T) {
	require.Equal(t, "John Smith", SearchName("Smith, John"))
	require.Equal(t, "Mary Ann O'Brien", SearchName(" O'Brien ,  Mary  Ann"))
	require.Equal(t, "Staff", SearchName("Staff"))
	require.Equal(t, "Smith", SearchName("Smith,"))
}

func TestPadSubjectCode(t *testing.T) {
	require.Equal(t, "CSE ", PadSubjectCode("cse"))
	require.Equal(t, "PH  ", PadSubjectCode("PH"))
	require.Equal(t, "MATH", PadSubjectCode("MATH"))
	require.Equal(t, "ECON", PadSubjectCode(" ECON "))
}
