package report

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	sheetNameFormat = "Report_%s"
	sheetTimeFormat = "2006-01-02_15-04-05"
	defaultSheet    = "Sheet1"

	columnWidth     = 14
	wideColumnWidth = 48

	fillPattern  = "pattern"
	failColor    = "FF5900"
	skipColor    = "FFEB9C"
	slowCaseTime = 300 * time.Millisecond
)

var xlsxHeaders = []string{
	"Case", "File", "Line", "Method", "URL", "Expected status",
	"Status", "Proto", "Result", "Message", "Duration (ms)", "Curl",
}

// WriteXLSX stores rows in a new sheet of the workbook at pth. An existing
// workbook keeps its sheets and gets one more per run.
func WriteXLSX(pth string, rows []Row, elapsed time.Duration, now time.Time) (string, error) {
	f, created, err := openWorkbook(pth)
	if err != nil {
		return "", err
	}

	defer f.Close()

	sheet := fmt.Sprintf(sheetNameFormat, now.Format(sheetTimeFormat))
	if created {
		if err = f.SetSheetName(defaultSheet, sheet); err != nil {
			return "", fmt.Errorf("excelize SetSheetName: %w", err)
		}
	} else if _, err = f.NewSheet(sheet); err != nil {
		return "", fmt.Errorf("excelize NewSheet: %w", err)
	}

	index, err := f.GetSheetIndex(sheet)
	if err != nil {
		return "", fmt.Errorf("excelize GetSheetIndex: %w", err)
	}
	f.SetActiveSheet(index)

	if err = writeSheet(f, sheet, rows, elapsed); err != nil {
		return "", err
	}

	if created {
		err = f.SaveAs(pth)
	} else {
		err = f.Save()
	}
	if err != nil {
		return "", fmt.Errorf("excelize save: %w", err)
	}

	return sheet, nil
}

func openWorkbook(pth string) (*excelize.File, bool, error) {
	if _, err := os.Stat(pth); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return excelize.NewFile(), true, nil
		}

		return nil, false, fmt.Errorf("os.Stat: %w", err)
	}

	f, err := excelize.OpenFile(pth)
	if err != nil {
		return nil, false, fmt.Errorf("excelize.OpenFile: %w", err)
	}

	return f, false, nil
}

func writeSheet(f *excelize.File, sheet string, rows []Row, elapsed time.Duration) error {
	last, err := excelize.ColumnNumberToName(len(xlsxHeaders))
	if err != nil {
		return fmt.Errorf("excelize ColumnNumberToName: %w", err)
	}

	if err = f.SetColWidth(sheet, "A", last, columnWidth); err != nil {
		return fmt.Errorf("excelize SetColWidth: %w", err)
	}

	for _, col := range []string{"A", "E", "J", "L"} {
		if err = f.SetColWidth(sheet, col, col, wideColumnWidth); err != nil {
			return fmt.Errorf("excelize SetColWidth: %w", err)
		}
	}

	if err = setRow(f, sheet, 1, toCells(xlsxHeaders)); err != nil {
		return err
	}

	failStyle, err := fillStyle(f, failColor)
	if err != nil {
		return err
	}

	warnStyle, err := fillStyle(f, skipColor)
	if err != nil {
		return err
	}

	for i, r := range rows {
		line := i + 2
		cells := []interface{}{
			r.Name,
			r.File,
			r.Line,
			r.Method,
			r.URL,
			r.Expected,
			r.Status,
			r.Proto,
			r.Outcome,
			r.Message,
			r.Duration.Milliseconds(),
			r.Curl,
		}

		if err = setRow(f, sheet, line, cells); err != nil {
			return err
		}

		style := 0
		switch {
		case r.Outcome == OutcomeFail || r.Outcome == OutcomeError:
			style = failStyle
		case r.Outcome == OutcomeSkip || r.Duration > slowCaseTime:
			style = warnStyle
		}

		if style == 0 {
			continue
		}

		if err = f.SetCellStyle(sheet, fmt.Sprintf("A%d", line), fmt.Sprintf("%s%d", last, line), style); err != nil {
			return fmt.Errorf("excelize SetCellStyle: %w", err)
		}
	}

	s := Summarize(rows)
	summary := []string{
		"Summary",
		fmt.Sprintf("Total time: %.3fms", float64(elapsed.Microseconds())/1000),
		fmt.Sprintf("Cases: %d", s.Total),
		fmt.Sprintf("Passed: %d", s.Passed),
		fmt.Sprintf("Failed: %d", s.Failed),
		fmt.Sprintf("Skipped: %d", s.Skipped),
		fmt.Sprintf("Errors: %d", s.Errored),
	}

	start := len(rows) + 3
	for i, text := range summary {
		if err = f.SetCellValue(sheet, fmt.Sprintf("A%d", start+i), text); err != nil {
			return fmt.Errorf("excelize SetCellValue: %w", err)
		}
	}

	return nil
}

func setRow(f *excelize.File, sheet string, line int, cells []interface{}) error {
	for i, v := range cells {
		name, err := excelize.CoordinatesToCellName(i+1, line)
		if err != nil {
			return fmt.Errorf("excelize CoordinatesToCellName: %w", err)
		}

		if err = f.SetCellValue(sheet, name, v); err != nil {
			return fmt.Errorf("excelize SetCellValue: %w", err)
		}
	}

	return nil
}

func fillStyle(f *excelize.File, rgb string) (int, error) {
	style, err := f.NewStyle(
		&excelize.Style{
			Fill: excelize.Fill{Type: fillPattern, Pattern: 1, Color: []string{rgb}},
		},
	)
	if err != nil {
		return 0, fmt.Errorf("excelize NewStyle: %w", err)
	}

	return style, nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}

	return cells
}
