package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nsu-cse/autograder-api/internal/dto"
)

func scenarioConfig() dto.GradingConfig {
	return dto.GradingConfig{
		TotalQuestions:     2,
		MarksPerQuestion:   2.5,
		CompilationTimeout: 60,
		CourseName:         "CSE115",
		SectionName:        "Section 10",
		AssignmentName:     "Assignment 2",
	}
}

func scenarioResult() dto.GradingResult {
	return dto.GradingResult{
		TotalStudents:      2,
		AverageScore:       3.75,
		HighestScore:       5,
		LowestScore:        2.5,
		PerfectScores:      1,
		StudentsWithErrors: 1,
		Students: []dto.StudentResult{
			{Name: "Alice", Questions: []float64{2.5, 2.5}, Total: 5},
			{Name: "Bob", Questions: []float64{2.5, 0}, Total: 2.5},
		},
		ErrorLog: []dto.CompilationError{
			{Student: "Bob", Question: 2, Filename: "bob_2.c", Message: "undefined reference"},
		},
	}
}

func TestBuildWorkbookGradesSheet(t *testing.T) {
	f, err := BuildWorkbook(scenarioResult(), scenarioConfig(), WorkbookOptions{})
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Grades")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.Equal(t, []string{"Student Name", "Q1", "Q2", "Total Score"}, rows[0])
	require.Equal(t, "Alice", rows[1][0])
	require.Equal(t, "5", rows[1][3])
	require.Equal(t, "Bob", rows[2][0])
	require.Equal(t, "2.5", rows[2][3])
}

func TestBuildWorkbookPreservesEngineOrder(t *testing.T) {
	result := scenarioResult()
	result.Students = []dto.StudentResult{result.Students[1], result.Students[0]}

	f, err := BuildWorkbook(result, scenarioConfig(), WorkbookOptions{})
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Grades")
	require.NoError(t, err)
	require.Equal(t, "Bob", rows[1][0])
	require.Equal(t, "Alice", rows[2][0])
}

func TestBuildWorkbookTotalCellStyling(t *testing.T) {
	cfg := scenarioConfig()
	result := scenarioResult()
	result.Students = append(result.Students, dto.StudentResult{Name: "Carol", Questions: []float64{0, 0}, Total: 0})

	f, err := BuildWorkbook(result, cfg, WorkbookOptions{})
	require.NoError(t, err)
	defer f.Close()

	unstyled, err := f.GetCellStyle("Grades", "A2")
	require.NoError(t, err)

	// Alice has full credit: 5 == 2 * 2.5.
	aliceTotal, err := f.GetCellStyle("Grades", "D2")
	require.NoError(t, err)
	require.NotEqual(t, unstyled, aliceTotal)

	aliceStyle, err := f.GetStyle(aliceTotal)
	require.NoError(t, err)
	require.NotNil(t, aliceStyle.Font)
	require.True(t, aliceStyle.Font.Bold)

	// Bob's 2.5 is not strictly below 5 * 0.5, so his total carries only
	// the alternating row tint, no score flag.
	bobTotal, err := f.GetCellStyle("Grades", "D3")
	require.NoError(t, err)
	bobRow, err := f.GetCellStyle("Grades", "A3")
	require.NoError(t, err)
	require.Equal(t, bobRow, bobTotal)

	// Carol's 0 is at risk.
	carolTotal, err := f.GetCellStyle("Grades", "D4")
	require.NoError(t, err)
	require.NotEqual(t, unstyled, carolTotal)
	require.NotEqual(t, aliceTotal, carolTotal)
}

func TestBuildWorkbookSummarySheet(t *testing.T) {
	f, err := BuildWorkbook(scenarioResult(), scenarioConfig(), WorkbookOptions{})
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Summary")
	require.NoError(t, err)

	require.Equal(t, "Grading Summary", rows[0][0])
	require.Equal(t, []string{"Course", "CSE115"}, rows[2])
	require.Equal(t, []string{"Section", "Section 10"}, rows[3])
	require.Equal(t, []string{"Assignment", "Assignment 2"}, rows[4])
	require.Equal(t, []string{"Total Students", "2"}, rows[6])
	require.Equal(t, []string{"Average Score", "3.75"}, rows[7])
	require.Equal(t, []string{"Students with Errors", "1"}, rows[11])
}

func TestBuildWorkbookDeterministic(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	opts := WorkbookOptions{Author: "grader", Created: created}

	first, err := BuildWorkbook(scenarioResult(), scenarioConfig(), opts)
	require.NoError(t, err)
	defer first.Close()

	second, err := BuildWorkbook(scenarioResult(), scenarioConfig(), opts)
	require.NoError(t, err)
	defer second.Close()

	for _, sheet := range []string{"Grades", "Summary"} {
		firstRows, err := first.GetRows(sheet)
		require.NoError(t, err)
		secondRows, err := second.GetRows(sheet)
		require.NoError(t, err)
		require.Equal(t, firstRows, secondRows)
	}
}
