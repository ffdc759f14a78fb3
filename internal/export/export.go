// Package export renders attendance records for download and display.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// Header is the first line of every CSV export.
var Header = []string{"Student ID", "Name", "Date", "Time", "Subject", "Status", "Confidence"}

// ContentType of the CSV download.
const ContentType = "text/csv;charset=utf-8"

// Row renders one record. The date is always quoted; other fields are
// written verbatim and confidence has two decimals.
func Row(r database.AttendanceRecord) string {
	return strings.Join([]string{
		r.StudentID,
		r.Name,
		`"` + r.Date + `"`,
		r.Time,
		r.Subject,
		string(r.Status),
		fmt.Sprintf("%.2f", r.Confidence),
	}, ",")
}

// CSV renders the header and one line per record, newline separated.
func CSV(records []database.AttendanceRecord) string {
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, strings.Join(Header, ","))
	for _, r := range records {
		lines = append(lines, Row(r))
	}
	return strings.Join(lines, "\n")
}

// WriteCSV writes CSV(records) to w.
func WriteCSV(w io.Writer, records []database.AttendanceRecord) error {
	if _, err := io.WriteString(w, CSV(records)); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

// Filename is the download name for an export made at now (UTC date).
func Filename(now time.Time) string {
	return "attendance_logs_" + now.UTC().Format(time.DateOnly) + ".csv"
}

// Percent renders a confidence as a whole percentage, rounded half away from zero.
func Percent(confidence float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(confidence*100)))
}

// Confidence tiers used for badge colours.
const (
	TierHigh   = "high"
	TierMedium = "medium"
	TierLow    = "low"
)

// Tier classifies a confidence score.
func Tier(confidence float64) string {
	switch {
	case confidence > 0.8:
		return TierHigh
	case confidence > 0.5:
		return TierMedium
	default:
		return TierLow
	}
}
