// Package report renders the unit register and dashboard statistics to
// Excel or CSV for offline reporting.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"qtrak/internal/models"
)

var unitHeaders = []string{
	"Serial", "Name", "Model", "Customer", "Priority", "Stage",
	"Overdue", "Severity", "Open Defects", "Target Ship", "Created",
}

func unitRow(u *models.Unit) []string {
	open := 0
	for _, d := range u.Defects {
		if d.Status.Open() {
			open++
		}
	}
	return []string{
		u.SerialNumber, u.Name, u.Model, u.Customer, string(u.Priority),
		u.CurrentStage.Label(), fmt.Sprintf("%t", u.IsOverdue), string(u.Severity),
		fmt.Sprintf("%d", open), fmtDate(u.TargetShipDate), u.CreatedAt.Format("2006-01-02"),
	}
}

func fmtDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// WriteUnitsCSV writes the unit register as CSV.
func WriteUnitsCSV(w io.Writer, units []*models.Unit) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(unitHeaders); err != nil {
		return err
	}
	for _, u := range units {
		if err := cw.Write(unitRow(u)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteUnitsExcel writes the unit register plus a dashboard sheet.
func WriteUnitsExcel(w io.Writer, units []*models.Unit, d models.DashboardStats) error {
	f := excelize.NewFile()
	defer f.Close()

	var data [][]string
	for _, u := range units {
		data = append(data, unitRow(u))
	}
	if err := writeSheet(f, "Units", unitHeaders, data); err != nil {
		return err
	}

	statHeaders := []string{"Metric", "Value"}
	var statRows [][]string
	for _, s := range models.Stages {
		statRows = append(statRows, []string{s.Label(), fmt.Sprintf("%d", d.StageCounts[s])})
	}
	statRows = append(statRows,
		[]string{"Total units", fmt.Sprintf("%d", d.TotalUnits)},
		[]string{"Overdue units", fmt.Sprintf("%d", d.OverdueUnits)},
		[]string{"Critical defects", fmt.Sprintf("%d", d.CriticalDefects)},
		[]string{"Shipped this month", fmt.Sprintf("%d", d.MonthlyShipped)},
		[]string{"Quality efficiency %", fmt.Sprintf("%d", d.QualityEfficiency)},
	)
	for _, s := range models.Stages {
		statRows = append(statRows, []string{"Avg hours in " + s.Label(), fmt.Sprintf("%.1f", d.AvgStageHours[s])})
	}
	if err := writeSheet(f, "Dashboard", statHeaders, statRows); err != nil {
		return err
	}

	// Drop the default sheet excelize creates.
	f.DeleteSheet("Sheet1")
	_, err := f.WriteTo(w)
	return err
}

func writeSheet(f *excelize.File, sheetName string, headers []string, data [][]string) error {
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%s1", string(rune('A'+i)))
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}
	for rowIdx, row := range data {
		for colIdx, value := range row {
			cell := fmt.Sprintf("%s%d", string(rune('A'+colIdx)), rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}
	return nil
}

// Filename builds a dated export filename like the rest of the reports.
func Filename(prefix, ext string, now time.Time) string {
	return strings.ToLower(prefix) + "_" + now.Format("2006-01-02") + "." + ext
}
