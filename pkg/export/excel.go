package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/config"
	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/models"
)

const excelSheet = "Variables"

// ExcelExporter writes an xlsx workbook with a styled, frozen header row
// and column widths sized for typical symbol names.
type ExcelExporter struct{}

func (e *ExcelExporter) Format() string    { return config.FormatXLSX }
func (e *ExcelExporter) Extension() string { return "xlsx" }

func (e *ExcelExporter) Write(w io.Writer, table *models.VariableTable) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(excelSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	if err := f.SetSheetRow(excelSheet, "A1", &[]interface{}{
		"Address", "Symbol Name", "Type", "Comment", "Sheet",
	}); err != nil {
		return err
	}
	if err := f.SetCellStyle(excelSheet, "A1", "E1", headerStyle); err != nil {
		return err
	}

	widths := map[string]float64{"A": 14, "B": 36, "C": 12, "D": 40, "E": 12}
	for col, width := range widths {
		if err := f.SetColWidth(excelSheet, col, col, width); err != nil {
			return err
		}
	}

	// Keep the header visible while scrolling.
	if err := f.SetPanes(excelSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	for i, r := range table.Records {
		cell := fmt.Sprintf("A%d", i+2)
		row := []interface{}{r.Address, r.Symbol, r.Category.String(), r.Comment, r.Sheet}
		if err := f.SetSheetRow(excelSheet, cell, &row); err != nil {
			return err
		}
	}

	summary := fmt.Sprintf("%d variables, extracted %s",
		table.Len(), table.ExtractedAt.Format("2006-01-02 15:04"))
	summaryCell := fmt.Sprintf("A%d", table.Len()+3)
	if err := f.SetCellValue(excelSheet, summaryCell, summary); err != nil {
		return err
	}

	return f.Write(w)
}
