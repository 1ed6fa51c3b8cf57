// Package report renders grading run results into downloadable
// artifacts. Both renderers are pure functions of the result and the
// grading configuration; artifacts are derived and regenerable, never a
// source of truth.
package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nsu-cse/autograder-api/internal/dto"
)

const (
	gradesSheet  = "Grades"
	summarySheet = "Summary"

	headerColor     = "3B82F6"
	altRowColor     = "F1F5F9"
	fullCreditColor = "10B981"
	atRiskColor     = "EF4444"
)

// WorkbookOptions carries the only nondeterministic inputs of workbook
// generation: creator metadata and the generation timestamp.
type WorkbookOptions struct {
	Author  string
	Created time.Time
}

// BuildWorkbook renders the grading result into a two-sheet workbook.
// Students appear in the order the engine returned them; no implicit
// resort happens here.
func BuildWorkbook(result dto.GradingResult, cfg dto.GradingConfig, opts WorkbookOptions) (*excelize.File, error) {
	f := excelize.NewFile()

	if opts.Author == "" {
		opts.Author = "C Autograder"
	}
	if opts.Created.IsZero() {
		opts.Created = time.Now()
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Creator: opts.Author,
		Created: opts.Created.UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, fmt.Errorf("set workbook properties: %w", err)
	}

	if err := f.SetSheetName("Sheet1", gradesSheet); err != nil {
		return nil, fmt.Errorf("rename grades sheet: %w", err)
	}

	if err := buildGradesSheet(f, result, cfg); err != nil {
		return nil, err
	}

	if err := buildSummarySheet(f, result, cfg); err != nil {
		return nil, err
	}

	return f, nil
}

func buildGradesSheet(f *excelize.File, result dto.GradingResult, cfg dto.GradingConfig) error {
	tabColor := headerColor
	if err := f.SetSheetProps(gradesSheet, &excelize.SheetPropsOptions{TabColorRGB: &tabColor}); err != nil {
		return fmt.Errorf("set grades tab color: %w", err)
	}

	header := make([]interface{}, 0, cfg.TotalQuestions+2)
	header = append(header, "Student Name")
	for q := 1; q <= cfg.TotalQuestions; q++ {
		header = append(header, fmt.Sprintf("Q%d", q))
	}
	header = append(header, "Total Score")

	if err := f.SetSheetRow(gradesSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}

	styles, err := newGradeStyles(f)
	if err != nil {
		return err
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return fmt.Errorf("resolve last column: %w", err)
	}

	if err := f.SetCellStyle(gradesSheet, "A1", lastCol+"1", styles.header); err != nil {
		return fmt.Errorf("style header row: %w", err)
	}

	totalMarks := cfg.TotalMarks()
	for i, student := range result.Students {
		rowNum := i + 2
		row := make([]interface{}, 0, len(header))
		row = append(row, student.Name)
		for _, score := range student.Questions {
			row = append(row, score)
		}
		row = append(row, student.Total)

		cell := fmt.Sprintf("A%d", rowNum)
		if err := f.SetSheetRow(gradesSheet, cell, &row); err != nil {
			return fmt.Errorf("write student row %d: %w", rowNum, err)
		}

		// Every other data row is tinted for readability.
		alt := i%2 == 1
		if alt {
			if err := f.SetCellStyle(gradesSheet, cell, fmt.Sprintf("%s%d", lastCol, rowNum), styles.altRow); err != nil {
				return fmt.Errorf("tint row %d: %w", rowNum, err)
			}
		}

		totalCell := fmt.Sprintf("%s%d", lastCol, rowNum)
		switch {
		case student.Total == totalMarks:
			if err := f.SetCellStyle(gradesSheet, totalCell, totalCell, styles.fullCredit(alt)); err != nil {
				return fmt.Errorf("style total cell %s: %w", totalCell, err)
			}
		case student.Total < totalMarks*0.5:
			if err := f.SetCellStyle(gradesSheet, totalCell, totalCell, styles.atRisk(alt)); err != nil {
				return fmt.Errorf("style total cell %s: %w", totalCell, err)
			}
		}
	}

	if err := f.SetColWidth(gradesSheet, "A", "A", 25); err != nil {
		return fmt.Errorf("set name column width: %w", err)
	}
	if err := f.SetColWidth(gradesSheet, "B", lastCol, 12); err != nil {
		return fmt.Errorf("set score column widths: %w", err)
	}

	return nil
}

func buildSummarySheet(f *excelize.File, result dto.GradingResult, cfg dto.GradingConfig) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	tabColor := fullCreditColor
	if err := f.SetSheetProps(summarySheet, &excelize.SheetPropsOptions{TabColorRGB: &tabColor}); err != nil {
		return fmt.Errorf("set summary tab color: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return fmt.Errorf("create title style: %w", err)
	}

	rows := [][]interface{}{
		{"Grading Summary"},
		{},
		{"Course", cfg.CourseName},
		{"Section", cfg.SectionName},
		{"Assignment", cfg.AssignmentName},
		{},
		{"Total Students", result.TotalStudents},
		{"Average Score", fmt.Sprintf("%.2f", result.AverageScore)},
		{"Highest Score", result.HighestScore},
		{"Lowest Score", result.LowestScore},
		{"Perfect Scores", result.PerfectScores},
		{"Students with Errors", result.StudentsWithErrors},
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}

	if err := f.SetCellStyle(summarySheet, "A1", "A1", titleStyle); err != nil {
		return fmt.Errorf("style summary title: %w", err)
	}

	if err := f.SetColWidth(summarySheet, "A", "A", 25); err != nil {
		return fmt.Errorf("set summary column width: %w", err)
	}

	return nil
}

type gradeStyles struct {
	header        int
	altRow        int
	fullCreditRow [2]int
	atRiskRow     [2]int
}

func (g gradeStyles) fullCredit(alt bool) int {
	if alt {
		return g.fullCreditRow[1]
	}
	return g.fullCreditRow[0]
}

func (g gradeStyles) atRisk(alt bool) int {
	if alt {
		return g.atRiskRow[1]
	}
	return g.atRiskRow[0]
}

func newGradeStyles(f *excelize.File) (gradeStyles, error) {
	var styles gradeStyles

	altFill := excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{altRowColor}}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerColor}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return styles, fmt.Errorf("create header style: %w", err)
	}

	altRow, err := f.NewStyle(&excelize.Style{Fill: altFill})
	if err != nil {
		return styles, fmt.Errorf("create alternating row style: %w", err)
	}

	fullCredit, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Color: fullCreditColor}})
	if err != nil {
		return styles, fmt.Errorf("create full credit style: %w", err)
	}

	fullCreditAlt, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: fullCreditColor},
		Fill: altFill,
	})
	if err != nil {
		return styles, fmt.Errorf("create full credit alt style: %w", err)
	}

	atRisk, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Color: atRiskColor}})
	if err != nil {
		return styles, fmt.Errorf("create at risk style: %w", err)
	}

	atRiskAlt, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: atRiskColor},
		Fill: altFill,
	})
	if err != nil {
		return styles, fmt.Errorf("create at risk alt style: %w", err)
	}

	styles.header = header
	styles.altRow = altRow
	styles.fullCreditRow = [2]int{fullCredit, fullCreditAlt}
	styles.atRiskRow = [2]int{atRisk, atRiskAlt}

	return styles, nil
}
