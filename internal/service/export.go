package service

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/scopecast/backend/internal/models"
)

const exportSheetName = "Estimate"

// ExportEstimate renders an estimate as an .xlsx workbook: a summary block
// followed by the per-phase breakdown, one phase per row.
func ExportEstimate(result *models.EstimateResult) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Size:  11,
			Color: "FFFFFF",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"4472C4"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	labelStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
	})
	if err != nil {
		return nil, fmt.Errorf("label style: %w", err)
	}

	summary := [][]interface{}{
		{"Ticket", result.JiraNumber},
		{"Total hours", result.TotalHours},
		{"Complexity", string(result.Complexity)},
		{"Confidence", result.Confidence},
		{"Method", result.EstimationMethod},
		{"Reasoning", result.Reasoning},
	}
	for i, row := range summary {
		labelCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valueCell, _ := excelize.CoordinatesToCellName(2, i+1)
		if err := f.SetCellValue(exportSheetName, labelCell, row[0]); err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheetName, valueCell, row[1]); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(exportSheetName, labelCell, labelCell, labelStyle); err != nil {
			return nil, err
		}
	}

	phaseHeaderRow := len(summary) + 2
	for col, header := range []string{"Phase", "Hours"} {
		cell, _ := excelize.CoordinatesToCellName(col+1, phaseHeaderRow)
		if err := f.SetCellValue(exportSheetName, cell, header); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(exportSheetName, cell, cell, headerStyle); err != nil {
			return nil, err
		}
	}

	row := phaseHeaderRow + 1
	for _, phase := range result.Phases {
		nameCell, _ := excelize.CoordinatesToCellName(1, row)
		hoursCell, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellValue(exportSheetName, nameCell, phase.Key); err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheetName, hoursCell, phase.Hours); err != nil {
			return nil, err
		}
		row++
	}

	if len(result.RiskFactors) > 0 {
		row++
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellValue(exportSheetName, cell, "Risk factors"); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(exportSheetName, cell, cell, labelStyle); err != nil {
			return nil, err
		}
		for _, risk := range result.RiskFactors {
			row++
			riskCell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetCellValue(exportSheetName, riskCell, risk); err != nil {
				return nil, err
			}
		}
	}

	for _, col := range []string{"A", "B"} {
		if err := f.SetColWidth(exportSheetName, col, col, 30); err != nil {
			return nil, err
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}
