package attendance

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/aura-seminar/backend/internal/models"
)

const sheetName = "Attendance"

type cellKey struct{ user, session uuid.UUID }

// BuildWorkbook lays out one row per member and one column per session (by sequence).
// A member with no row for a session is written as absent.
func BuildWorkbook(sem *models.Seminar, sessions []models.Session, members []models.User, rows []models.Attendance) (*bytes.Buffer, error) {
	status := make(map[cellKey]models.AttendanceStatus, len(rows))
	for _, a := range rows {
		status[cellKey{a.UserID, a.SessionID}] = a.Status
	}

	f := excelize.NewFile()
	defer f.Close()
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}

	_ = f.SetColWidth(sheetName, "A", "A", 24)
	_ = f.SetColWidth(sheetName, "B", "B", 30)
	_ = f.SetCellValue(sheetName, "A1", sem.Title)

	header := []interface{}{"Member", "Email"}
	for _, s := range sessions {
		header = append(header, fmt.Sprintf("#%d %s", s.Sequence, s.ScheduledAt.Format("2006-01-02")))
	}
	header = append(header, "Attended")
	if err := f.SetSheetRow(sheetName, "A2", &header); err != nil {
		return nil, err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 2)
	if err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(sheetName, "A2", last, headerStyle)

	for i, m := range members {
		name := m.FullName
		if name == "" {
			name = m.ID.String()
		}
		row := []interface{}{name, m.Email}
		attended := 0
		for _, s := range sessions {
			st, ok := status[cellKey{m.ID, s.ID}]
			if !ok {
				st = models.AttendanceAbsent
			}
			if st == models.AttendancePresent || st == models.AttendanceLate {
				attended++
			}
			row = append(row, string(st))
		}
		row = append(row, attended)
		cell, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, err
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
