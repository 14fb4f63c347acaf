package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/npezzotti/go-roomboard/internal/types"
	"github.com/xuri/excelize/v2"
)

const (
	exportSheetName   = "Rooms"
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportTimeLayout  = "2006-01-02 15:04:05"
	exportFilePattern = "rooms-%s.xlsx"
)

var exportHeader = []string{"ID", "Room ID", "Password", "Game", "Tier", "Tier Name", "Status", "Created By", "Created At"}

var exportColumnWidths = []float64{14, 18, 16, 12, 8, 12, 10, 28, 20}

func (s *RoomBoardApp) exportRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.repo.ListRecentRooms(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	data, err := generateRoomsExport(rooms)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		"attachment; filename="+fmt.Sprintf(exportFilePattern, time.Now().UTC().Format("20060102")))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// generateRoomsExport renders rooms as a single-sheet workbook with a frozen
// header row.
func generateRoomsExport(rooms []types.Room) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetRow(exportSheetName, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(exportHeader), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(exportSheetName, "A1", lastHeader, headerStyle); err != nil {
		return nil, fmt.Errorf("set header style: %w", err)
	}

	for i, width := range exportColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(exportSheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for i, room := range rooms {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}

		var createdAt string
		if room.CreatedAt != nil {
			createdAt = room.CreatedAt.UTC().Format(exportTimeLayout)
		}

		row := []any{
			room.Id,
			room.RoomId,
			room.Password,
			room.Game,
			string(room.Tier),
			tierName(room.Tier),
			string(room.Status),
			room.CreatedBy,
			createdAt,
		}
		if err := f.SetSheetRow(exportSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(exportSheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	return buf.Bytes(), nil
}
