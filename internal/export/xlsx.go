package export

import (
	"fmt"
	"io"
	"time"

	"github.com/couchcryptid/station-monitor/internal/domain"
	"github.com/xuri/excelize/v2"
)

// StationsSheet is the worksheet holding the station snapshot.
const StationsSheet = "Stations"

var stationColumnWidths = []float64{20, 10, 14, 14, 16, 17, 13, 17, 24}

// WriteStationsXLSX writes the station snapshot as a single-sheet workbook
// with the same columns as the CSV export. Numeric cells stay numeric.
func WriteStationsXLSX(w io.Writer, stations []domain.Station) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	index, err := f.NewSheet(StationsSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	numberStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00
	if err != nil {
		return fmt.Errorf("create number style: %w", err)
	}

	header := make([]any, len(StationsHeader))
	for i, h := range StationsHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(StationsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(StationsHeader), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(StationsSheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, width := range stationColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(StationsSheet, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	for i, st := range stations {
		row := i + 2
		s := st.Sensors
		values := []any{
			st.Name,
			string(st.Status),
			s.ET0,
			s.Rainfall,
			s.WaterLevel,
			s.Temperature,
			s.Humidity,
			s.WindSpeed,
			st.LastUpdated.UTC().Format(time.RFC3339),
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(StationsSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		from, _ := excelize.CoordinatesToCellName(3, row)
		to, _ := excelize.CoordinatesToCellName(8, row)
		if err := f.SetCellStyle(StationsSheet, from, to, numberStyle); err != nil {
			return fmt.Errorf("style row %d: %w", row, err)
		}
	}

	if err := f.SetPanes(StationsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
