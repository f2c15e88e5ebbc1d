package curriculum

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ImportXLSX reads the first worksheet of a workbook and applies the same
// rules as ImportCSV. The first non-empty row is the header.
func ImportXLSX(r io.Reader, levels []Level, opts ImportOptions) (ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return ImportResult{}, &ValidationError{Missing: append([]string{}, RequiredHeaders...)}
	}
	all, err := f.GetRows(sheet)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	var header []string
	rows := make([][]string, 0, len(all))
	for _, row := range all {
		if blankRow(row) {
			continue
		}
		if header == nil {
			header = row
			continue
		}
		rows = append(rows, row)
	}
	return ImportRows(header, rows, levels, opts)
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// sampleRows is the template offered to admins preparing an import.
var sampleRows = [][]string{
	{"Level 1 (Ages 3-4)", "Sample Student Book", "A comprehensive learning book for young children", "student", "978-1-234567-99-9", "https://example.com/book", "Introduction to Learning", "First Steps", "Students will understand basic concepts and develop foundational skills"},
	{"Level 1 (Ages 3-4)", "Sample Student Book", "A comprehensive learning book for young children", "student", "978-1-234567-99-9", "https://example.com/book", "Introduction to Learning", "Building Confidence", "Students will gain confidence in their learning abilities"},
	{"Level 1 (Ages 3-4)", "Sample Student Book", "A comprehensive learning book for young children", "student", "978-1-234567-99-9", "https://example.com/book", "Advanced Concepts", "Exploring Ideas", "Students will explore new ideas and concepts"},
	{"Level 1 (Ages 3-4)", "Sample Practice Book", "Practice exercises for skill reinforcement", "practice", "978-1-234567-98-8", "", "Practice Exercises", "Exercise 1", "Students will practice fundamental skills through guided exercises"},
	{"Level 1 (Ages 3-4)", "Sample Teacher Guide", "Comprehensive teaching guide with lesson plans", "teacher", "978-1-234567-97-7", "", "Teaching Strategies", "Classroom Management", "Teachers will learn effective classroom management techniques"},
	{"Level 2 (Ages 4-5)", "Another Book", "Description for another book", "student", "", "", "Unit A", "Lesson Alpha", "Students will learn advanced concepts for their age group"},
}

// SampleCSV renders the import template as CSV.
func SampleCSV() string {
	lines := make([]string, 0, len(sampleRows)+1)
	lines = append(lines, strings.Join(AllHeaders, ","))
	for _, row := range sampleRows {
		lines = append(lines, strings.Join(row, ","))
	}
	return strings.Join(lines, "\n")
}

// WriteSampleXLSX writes the import template as a workbook.
func WriteSampleXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	all := append([][]string{AllHeaders}, sampleRows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
