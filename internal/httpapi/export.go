package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"droptrack/internal/core"
	applog "droptrack/internal/log"

	"github.com/xuri/excelize/v2"
)

var exportColumns = []string{
	"Date", "Volume", "Income", "Loss",
	"Points Balance", "Points Trading", "Points Consumed", "Net Points",
}

// ExportXLSX renders records into a single-sheet workbook, one row per day.
func ExportXLSX(records []core.DailyRecord) ([]byte, error) {
	xlsx := excelize.NewFile()
	sheet := xlsx.GetSheetName(xlsx.GetActiveSheetIndex())

	_ = xlsx.SetColWidth(sheet, "A", "A", 12)
	_ = xlsx.SetColWidth(sheet, "B", "D", 14)
	_ = xlsx.SetColWidth(sheet, "E", "H", 16)

	for i, name := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = xlsx.SetCellValue(sheet, cell, name)
	}

	for i, r := range records {
		row := i + 2
		_ = xlsx.SetCellValue(sheet, "A"+strconv.Itoa(row), r.Date.String())
		_ = xlsx.SetCellValue(sheet, "B"+strconv.Itoa(row), r.Volume.InexactFloat64())
		_ = xlsx.SetCellValue(sheet, "C"+strconv.Itoa(row), r.Income.InexactFloat64())
		_ = xlsx.SetCellValue(sheet, "D"+strconv.Itoa(row), r.Loss.InexactFloat64())
		_ = xlsx.SetCellValue(sheet, "E"+strconv.Itoa(row), r.PointsBalance)
		_ = xlsx.SetCellValue(sheet, "F"+strconv.Itoa(row), r.PointsTrading)
		_ = xlsx.SetCellValue(sheet, "G"+strconv.Itoa(row), r.PointsConsumed)
		_ = xlsx.SetCellValue(sheet, "H"+strconv.Itoa(row), r.Net())
	}

	_ = xlsx.SetSheetName(sheet, "Records")

	buf, err := xlsx.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.All(r.Context())
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to load records", err)
		return
	}

	data, err := ExportXLSX(records)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to build export", err)
		return
	}

	slog.InfoContext(r.Context(), "Export generated",
		applog.FieldOperation, applog.OpExport,
		"records", len(records))

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="records.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
