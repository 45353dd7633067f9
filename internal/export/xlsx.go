// Package export renders expense groupings as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"kharcha/internal/core"
)

// ContentTypeXLSX is the media type of WriteGroupingXLSX output.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const emptySheet = "Expenses"

var headers = []string{"Date", "Item", "Amount"}

// WriteGroupingXLSX writes one sheet per year: the records of each month
// followed by a month subtotal row, and a year total at the end.
func WriteGroupingXLSX(w io.Writer, g core.Grouping) error {
	f := excelize.NewFile()
	defer f.Close()

	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("amount style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4, Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("total style: %w", err)
	}

	years := g.Years()
	if len(years) == 0 {
		if err := f.SetSheetName("Sheet1", emptySheet); err != nil {
			return err
		}
		if err := writeHeader(f, emptySheet); err != nil {
			return err
		}
	}

	for i, year := range years {
		sheet := strconv.Itoa(year.Year)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("new sheet %s: %w", sheet, err)
		}
		if err := writeHeader(f, sheet); err != nil {
			return err
		}

		row := 2
		for _, month := range year.Months {
			for _, r := range month.Records {
				if err := f.SetSheetRow(sheet, cell(1, row), &[]any{core.EncodeDate(r.Date), r.ItemName, r.Amount.Float64()}); err != nil {
					return err
				}
				_ = f.SetCellStyle(sheet, cell(3, row), cell(3, row), amountStyle)
				row++
			}
			if err := f.SetSheetRow(sheet, cell(1, row), &[]any{month.Name + " total", "", month.Total().Float64()}); err != nil {
				return err
			}
			_ = f.SetCellStyle(sheet, cell(1, row), cell(3, row), totalStyle)
			row++
		}
		if err := f.SetSheetRow(sheet, cell(1, row), &[]any{fmt.Sprintf("%d total", year.Year), "", year.Total().Float64()}); err != nil {
			return err
		}
		_ = f.SetCellStyle(sheet, cell(1, row), cell(3, row), totalStyle)

		_ = f.SetColWidth(sheet, "A", "A", 16)
		_ = f.SetColWidth(sheet, "B", "B", 36)
		_ = f.SetColWidth(sheet, "C", "C", 14)
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string) error {
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return fmt.Errorf("header: %w", err)
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
