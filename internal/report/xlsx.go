// Package report renders admin spreadsheet exports. It only formats data the
// catalog and ledger already computed; it owns no state.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

type UserRow struct {
	EmployeeID string
	FullName   string
	Email      string
	Attempted  bool
	Score      int
	TimeTaken  float64 // seconds
}

type LeaderboardRow struct {
	EmployeeID  string
	FullName    string
	Email       string
	Score       int
	TimeTaken   float64 // seconds
	SubmittedAt time.Time
}

// UsersReport builds the assigned-users workbook: attempted users sorted by
// score descending, then pending users with placeholder cells.
func UsersReport(quizTitle string, rows []UserRow) (*excelize.File, string, error) {
	const sheet = "Users Report"
	f, err := newWorkbook(sheet, "D9E1F2",
		[]string{"Employee ID", "Full Name", "Email", "Score", "Time Taken (in minutes)", "GPA (out of 5)"})
	if err != nil {
		return nil, "", err
	}

	attempted := make([]UserRow, 0, len(rows))
	pending := make([]UserRow, 0, len(rows))
	for _, r := range rows {
		if r.Attempted {
			attempted = append(attempted, r)
		} else {
			pending = append(pending, r)
		}
	}
	sort.SliceStable(attempted, func(i, j int) bool { return attempted[i].Score > attempted[j].Score })

	rowNum := 2
	for _, r := range attempted {
		cells := []any{r.EmployeeID, r.FullName, r.Email, r.Score, minutes(r.TimeTaken), gpa(r.Score)}
		if err := writeRow(f, sheet, rowNum, cells); err != nil {
			return nil, "", err
		}
		rowNum++
	}
	for _, r := range pending {
		cells := []any{r.EmployeeID, r.FullName, r.Email, "Pending", "Pending", "Pending"}
		if err := writeRow(f, sheet, rowNum, cells); err != nil {
			return nil, "", err
		}
		rowNum++
	}
	return f, filename(quizTitle, "users_report"), nil
}

// LeaderboardReport builds the per-quiz leaderboard workbook sorted by score
// descending.
func LeaderboardReport(quizTitle string, rows []LeaderboardRow) (*excelize.File, string, error) {
	const sheet = "Leaderboard Report"
	f, err := newWorkbook(sheet, "FFE699",
		[]string{"Employee ID", "Full Name", "Email", "Score", "Time Taken (in minutes)", "GPA (out of 5)", "Submitted At"})
	if err != nil {
		return nil, "", err
	}

	sorted := append([]LeaderboardRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	for i, r := range sorted {
		submitted := "N/A"
		if !r.SubmittedAt.IsZero() {
			submitted = r.SubmittedAt.Format("2006-01-02 15:04:05")
		}
		cells := []any{r.EmployeeID, r.FullName, r.Email, r.Score, minutes(r.TimeTaken), gpa(r.Score), submitted}
		if err := writeRow(f, sheet, i+2, cells); err != nil {
			return nil, "", err
		}
	}
	return f, filename(quizTitle, "leaderboard_report"), nil
}

func newWorkbook(sheet, headerColor string, headers []string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}
	if err := writeRow(f, sheet, 1, toAny(headers)); err != nil {
		return nil, err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return nil, err
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 25); err != nil {
		return nil, err
	}
	return f, nil
}

func writeRow(f *excelize.File, sheet string, row int, cells []any) error {
	for col, v := range cells {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func minutes(seconds float64) float64 {
	return math.Round(seconds/60*100) / 100
}

func gpa(score int) float64 {
	return math.Round(float64(score)/100*5*100) / 100
}

func filename(quizTitle, kind string) string {
	var b strings.Builder
	for _, c := range quizTitle {
		switch {
		case c == ' ':
			b.WriteRune('_')
		case c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			b.WriteRune(c)
		}
	}
	return fmt.Sprintf("%s_%s_%s.xlsx", b.String(), kind, time.Now().Format("2006-01-02_15-04-05"))
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
