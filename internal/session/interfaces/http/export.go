package http

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	session "forsee-cloud/internal/session/domain"
)

// BuildRunPDF renders a one-page maintenance report for a prediction run.
func BuildRunPDF(run session.PredictionRun, tickets []session.ActionTicket) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.Cell(0, 8, "Predictive Maintenance Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Asset: %s (%s)", run.AssetTitle, run.AssetID)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Run: %s", run.ID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Requested By: %s", run.RequestedBy))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", run.CreatedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	res := run.Result
	pdf.Cell(0, 6, fmt.Sprintf("Health Index: %d", res.HealthIndex))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Risk Level: %s", res.RiskLevel))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Remaining Useful Life (days): %d", res.RUL))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Precursor Probability: %.2f  Confidence: %.2f", res.PrecursorProbability, res.Confidence))
	pdf.Ln(5)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Failure Mode: %s", res.FailureMode)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Data Drift: %t", res.DriftDetected))
	pdf.Ln(5)
	pdf.MultiCell(0, 6, tr("Recommended Action: "+res.RecommendedAction), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(90, 6, "Top Sensor", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Weight (%)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, s := range res.TopSensors {
		pdf.CellFormat(90, 6, tr(s.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", s.Weight), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(90, 6, "Sensor", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Input", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, id := range sortedKeys(run.Inputs) {
		pdf.CellFormat(90, 6, tr(id), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, tr(run.Inputs[id]), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if len(tickets) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Dispatched Actions")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		for _, t := range tickets {
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("%s  %s  by %s  %s", t.CreatedAt.Format(time.RFC3339), t.ID, t.DispatchedBy, t.Note)), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildRunXLSX renders a prediction run as a workbook with summary, inputs and actions sheets.
func BuildRunXLSX(run session.PredictionRun, tickets []session.ActionTicket) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	inputsSheet := "inputs"
	actionsSheet := "actions"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(inputsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(actionsSheet); err != nil {
		return nil, err
	}

	res := run.Result
	rows := [][2]any{
		{"Predictive Maintenance Report", ""},
		{"", ""},
		{"Run", run.ID},
		{"Asset", run.AssetID},
		{"Asset Title", run.AssetTitle},
		{"Requested By", run.RequestedBy},
		{"Generated", run.CreatedAt.Format(time.RFC3339)},
		{"Health Index", res.HealthIndex},
		{"Risk Level", string(res.RiskLevel)},
		{"RUL (days)", res.RUL},
		{"Precursor Probability", res.PrecursorProbability},
		{"Confidence", res.Confidence},
		{"Failure Mode", res.FailureMode},
		{"Data Drift", res.DriftDetected},
		{"Recommended Action", res.RecommendedAction},
	}
	for i, row := range rows {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+1), row[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), row[1])
	}
	next := len(rows) + 2
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", next), "Top Sensor")
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", next), "Weight (%)")
	for i, s := range res.TopSensors {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", next+i+1), s.Name)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", next+i+1), s.Weight)
	}

	_ = f.SetCellValue(inputsSheet, "A1", "Sensor")
	_ = f.SetCellValue(inputsSheet, "B1", "Input")
	for i, id := range sortedKeys(run.Inputs) {
		_ = f.SetCellValue(inputsSheet, fmt.Sprintf("A%d", i+2), id)
		_ = f.SetCellValue(inputsSheet, fmt.Sprintf("B%d", i+2), run.Inputs[id])
	}

	_ = f.SetCellValue(actionsSheet, "A1", "Ticket")
	_ = f.SetCellValue(actionsSheet, "B1", "Action")
	_ = f.SetCellValue(actionsSheet, "C1", "Dispatched By")
	_ = f.SetCellValue(actionsSheet, "D1", "Dispatched At")
	_ = f.SetCellValue(actionsSheet, "E1", "Note")
	for i, t := range tickets {
		row := i + 2
		_ = f.SetCellValue(actionsSheet, fmt.Sprintf("A%d", row), t.ID)
		_ = f.SetCellValue(actionsSheet, fmt.Sprintf("B%d", row), t.Action)
		_ = f.SetCellValue(actionsSheet, fmt.Sprintf("C%d", row), t.DispatchedBy)
		_ = f.SetCellValue(actionsSheet, fmt.Sprintf("D%d", row), t.CreatedAt.Format(time.RFC3339))
		_ = f.SetCellValue(actionsSheet, fmt.Sprintf("E%d", row), t.Note)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
