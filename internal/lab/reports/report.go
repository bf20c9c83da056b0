// Package reports は申請台帳と監査イベントの CSV / XLSX 出力。
package reports

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"RACE-backend/internal/lab/model"
)

const (
	na         = "N/A"
	timeLayout = "2006-01-02 15:04"
	sheetName  = "Requests"
)

var requestHeaders = []string{
	"Request ID", "Batch ID", "Student ID", "Student name", "Department", "Year of study",
	"Component ID", "Component Name", "Quantity", "Purpose", "Duration (Days)", "Status",
	"Mentor Name", "Mentor Approval", "Mentor Remarks", "HOD Approval", "HOD Remarks",
	"Incharge Approval", "Incharge Remarks",
	"Component Issue Time", "Due date", "Date of return", "Working Returned", "Not Working Returned", "Technician Remarks",
}

func str(s string) string {
	if s == "" {
		return na
	}
	return s
}

func nstr(s sql.NullString) string {
	if !s.Valid || s.String == "" {
		return na
	}
	return s.String
}

func ntime(t sql.NullTime, loc *time.Location) string {
	if !t.Valid {
		return na
	}
	return t.Time.In(loc).Format(timeLayout)
}

func nint(n sql.NullInt64) string {
	if !n.Valid {
		return na
	}
	return strconv.FormatInt(n.Int64, 10)
}

func requestRow(r model.Request, loc *time.Location) []string {
	return []string{
		strconv.FormatInt(r.ID, 10), r.BatchKey(), str(r.RequesterEmail),
		str(r.RequesterName), str(r.RequesterDept), str(r.RequesterYear),
		str(r.ComponentID), str(r.ComponentName), strconv.Itoa(r.Quantity),
		nstr(r.ProjectDescription), strconv.Itoa(r.DurationDays), string(r.Status),
		str(r.MentorName), ntime(r.MentorApprovedAt, loc), nstr(r.MentorRemarks),
		ntime(r.HODApprovedAt, loc), nstr(r.HODRemarks),
		nstr(r.InchargeEmail), nstr(r.InchargeRemarks),
		ntime(r.IssuedAt, loc), nstr(r.DueDate), ntime(r.ReturnedAt, loc),
		nint(r.WorkingCount), nint(r.NotWorkingCount), nstr(r.TechRemarks),
	}
}

// bomWriter: Excel で文字化けしないよう UTF-8 BOM を先頭に付ける
func bomWriter(w io.Writer) io.WriteCloser {
	return transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	tw := bomWriter(w)
	cw := csv.NewWriter(tw)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return tw.Close()
}

// WriteRequestsCSV は全申請を id 順に書き出す
func WriteRequestsCSV(w io.Writer, list []model.Request, loc *time.Location) error {
	rows := make([][]string, 0, len(list))
	for _, r := range list {
		rows = append(rows, requestRow(r, loc))
	}
	return writeCSV(w, requestHeaders, rows)
}

// BuildRequestsWorkbook は同じ内容の XLSX を作る
func BuildRequestsWorkbook(list []model.Request, loc *time.Location) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	headStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}

	for i, h := range requestHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s1", col)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headStyle); err != nil {
			return nil, err
		}
		width := 16.0
		if h == "Purpose" || h == "Incharge Remarks" || h == "Technician Remarks" {
			width = 32
		}
		_ = f.SetColWidth(sheetName, col, col, width)
	}

	for i, r := range list {
		row := i + 2
		for j, v := range requestRow(r, loc) {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			// 数値列は数値として入れる
			var val any = v
			if n, err := strconv.Atoi(v); err == nil && (j == 0 || j == 8 || j == 10 || j == 22 || j == 23) {
				val = n
			}
			if err := f.SetCellValue(sheetName, cell, val); err != nil {
				return nil, err
			}
		}
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}
	return f, nil
}

// AuditHeaders: 時刻列には業務タイムゾーンの略称を付ける（例: Time (IST)）
func AuditHeaders(loc *time.Location) []string {
	zone, _ := time.Now().In(loc).Zone()
	return []string{fmt.Sprintf("Time (%s)", zone), "Action", "Performed By", "Req ID", "Item", "From(quantity)", "To(quantity)"}
}

func auditRow(e model.Event, loc *time.Location) []string {
	return []string{
		e.OccurredAt.In(loc).Format("2006-01-02 15:04:05"),
		string(e.Action),
		str(e.Actor),
		nint(e.RequestID),
		str(e.Component),
		nint(e.QtyFrom),
		nint(e.QtyTo),
	}
}

// WriteAuditCSV は監査イベントの CSV 射影
func WriteAuditCSV(w io.Writer, events []model.Event, loc *time.Location) error {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, auditRow(e, loc))
	}
	return writeCSV(w, AuditHeaders(loc), rows)
}
