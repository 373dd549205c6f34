package attendance

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"geoabsensi/internal/models"
	"geoabsensi/internal/util"
)

const exportSheet = "Absensi"

var exportHeaders = []string{"Tanggal", "Jam", "Tipe", "Lokasi", "Latitude", "Longitude"}

// BuildWorkbook renders logs as an xlsx sheet, one row per entry, with times
// in the business zone. locationNames resolves LocationID to a display name.
func BuildWorkbook(title string, logs []models.LogEntry, locationNames map[int64]string) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("new sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	_ = f.SetColWidth(exportSheet, "A", "A", 12)
	_ = f.SetColWidth(exportSheet, "B", "C", 8)
	_ = f.SetColWidth(exportSheet, "D", "D", 28)
	_ = f.SetColWidth(exportSheet, "E", "F", 14)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	_ = f.SetCellValue(exportSheet, "A1", title)
	_ = f.MergeCell(exportSheet, "A1", "F1")
	_ = f.SetCellStyle(exportSheet, "A1", "A1", headerStyle)

	for i, h := range exportHeaders {
		c, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(exportSheet, c, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(exportHeaders), 2)
	_ = f.SetCellStyle(exportSheet, "A2", last, headerStyle)

	row := 3
	for _, l := range logs {
		ts := util.BusinessTime(l.Timestamp)
		loc := "-"
		if l.LocationID != nil {
			if name, ok := locationNames[*l.LocationID]; ok {
				loc = name
			} else {
				loc = fmt.Sprintf("#%d", *l.LocationID)
			}
		}
		values := []any{ts.Format("2006-01-02"), ts.Format("15:04"), l.Type, loc, l.Latitude, l.Longitude}
		for i, v := range values {
			c, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(exportSheet, c, v)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf, nil
}
