package attendance

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// WriteMonthlyPDF renders a month of attendance rows plus the summary as a
// printable report.
func WriteMonthlyPDF(w io.Writer, employeeName string, sum Summary, days []Day) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Attendance Report")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", employeeName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %04d-%02d", sum.Year, sum.Month))
	pdf.Ln(10)

	pdf.Cell(0, 8, fmt.Sprintf("Working days: %d scheduled, %d attended (%s%%)",
		sum.TotalWorkingDays, sum.ActualWorkingDays, sum.AttendanceRate()))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Absent: %d   Late: %d   Early leave: %d",
		sum.AbsentDays, sum.LateDays, sum.EarlyLeaveDays))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Leave days: %d vacation, %d sick, %d personal, %d other",
		sum.VacationLeaveDays, sum.SickLeaveDays, sum.PersonalLeaveDays, sum.OtherLeaveDays))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Hours: %s worked, %s overtime",
		sum.TotalWorkingHours(), sum.OvertimeHours()))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 10)
	widths := []float64{24, 22, 22, 18, 18, 18, 18, 24}
	headers := []string{"Date", "In", "Out", "Break", "Late", "Early", "OT", "Status"}
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, d := range days {
		cols := []string{
			d.Date.Format("2006-01-02"),
			clockOrDash(d.CheckInAt),
			clockOrDash(d.CheckOutAt),
			strconv.Itoa(d.BreakMinutes),
			strconv.Itoa(d.LateMinutes),
			strconv.Itoa(d.EarlyLeaveMinutes),
			strconv.Itoa(d.OvertimeMinutes),
			string(d.Status),
		}
		for i, c := range cols {
			pdf.CellFormat(widths[i], 7, c, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}

// WriteMonthlyCSV exports the raw day rows for spreadsheet import.
func WriteMonthlyCSV(w io.Writer, days []Day) error {
	cw := csv.NewWriter(w)
	header := []string{
		"date", "check_in", "check_out", "break_minutes", "worked_minutes",
		"late_minutes", "early_leave_minutes", "overtime_minutes", "status",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, d := range days {
		record := []string{
			d.Date.Format("2006-01-02"),
			timeOrEmpty(d.CheckInAt),
			timeOrEmpty(d.CheckOutAt),
			strconv.Itoa(d.BreakMinutes),
			strconv.Itoa(d.WorkedMinutes),
			strconv.Itoa(d.LateMinutes),
			strconv.Itoa(d.EarlyLeaveMinutes),
			strconv.Itoa(d.OvertimeMinutes),
			string(d.Status),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func clockOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("15:04")
}

func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
