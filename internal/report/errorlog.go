package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nsu-cse/autograder-api/internal/dto"
)

const (
	bannerWidth    = 100
	separatorWidth = 60
)

// BuildErrorLog renders the grouped plain-text compilation error log.
// Students are iterated in lexicographic order regardless of the order
// errors arrived, so the log is scannable.
func BuildErrorLog(result dto.GradingResult, cfg dto.GradingConfig, generatedAt time.Time) string {
	totalMarks := cfg.TotalMarks()
	banner := strings.Repeat("=", bannerWidth)

	var b strings.Builder

	b.WriteString(banner + "\n")
	fmt.Fprintf(&b, "%s %s - %s - COMPILATION ERROR LOG\n", cfg.CourseName, cfg.SectionName, cfg.AssignmentName)
	fmt.Fprintf(&b, "Generated: %s\n", generatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Grading: %d questions x %g marks = %g total\n", cfg.TotalQuestions, cfg.MarksPerQuestion, totalMarks)
	b.WriteString(banner + "\n\n")

	b.WriteString(banner + "\n")
	b.WriteString("SECTION 1: COMPILATION ERRORS\n")
	b.WriteString(banner + "\n")

	if len(result.ErrorLog) > 0 {
		writeErrorSection(&b, result, totalMarks)
	} else {
		b.WriteString("\nNo compilation errors! All submitted files compiled successfully.\n")
	}

	b.WriteString("\n\n" + banner + "\n")
	b.WriteString("SECTION 2: STATISTICS SUMMARY\n")
	b.WriteString(banner + "\n\n")
	fmt.Fprintf(&b, "Total Students: %d\n", result.TotalStudents)
	fmt.Fprintf(&b, "Average Score: %.2f/%g\n", result.AverageScore, totalMarks)
	fmt.Fprintf(&b, "Highest Score: %g/%g\n", result.HighestScore, totalMarks)
	fmt.Fprintf(&b, "Lowest Score: %g/%g\n", result.LowestScore, totalMarks)
	fmt.Fprintf(&b, "Perfect Scores: %d\n", result.PerfectScores)
	fmt.Fprintf(&b, "Students with Errors: %d\n", result.StudentsWithErrors)

	return b.String()
}

func writeErrorSection(b *strings.Builder, result dto.GradingResult, totalMarks float64) {
	grouped := make(map[string][]dto.CompilationError)
	for _, entry := range result.ErrorLog {
		grouped[entry.Student] = append(grouped[entry.Student], entry)
	}

	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)

	totals := make(map[string]float64, len(result.Students))
	for _, student := range result.Students {
		totals[student.Name] = student.Total
	}

	divider := strings.Repeat("-", bannerWidth)
	for _, name := range names {
		// An error entry without a matching student record still gets a
		// block; the displayed score defaults to zero.
		total := totals[name]

		fmt.Fprintf(b, "\n%s\n", divider)
		fmt.Fprintf(b, "STUDENT: %s (Score: %g/%g)\n", name, total, totalMarks)
		fmt.Fprintf(b, "%s\n", divider)

		for _, entry := range grouped[name] {
			fmt.Fprintf(b, "\nQuestion %d:\n", entry.Question)
			fmt.Fprintf(b, "   File: %s\n", entry.Filename)
			b.WriteString(strings.Repeat("-", separatorWidth) + "\n")
			fmt.Fprintf(b, "%s\n", entry.Message)
		}
	}
}
