package session

import (
	"strings"
	"time"
	"unicode"

	"github.com/kozaktomas/face-attendance/internal/database"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LogFilter narrows the attendance log. Empty fields match everything.
type LogFilter struct {
	Query   string // name (case and accent insensitive) or student ID substring
	Date    string // substring of the record date, or an ISO date (2006-01-02)
	Subject string // case insensitive subject substring
}

// searchKey folds case and strips diacritics ("Jiří" and "JIRI" share a key).
func searchKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	result, _, _ := transform.String(t, s)
	return result
}

// dateMatcher returns the string a record date must contain. ISO dates from
// a browser date picker are converted to the record layout.
func dateMatcher(date string) (string, bool) {
	date = strings.TrimSpace(date)
	if t, err := time.Parse(time.DateOnly, date); err == nil {
		return t.Format(database.DateLayout), true
	}
	return date, false
}

// Match reports whether a record passes the filter.
func (f LogFilter) Match(r database.AttendanceRecord) bool {
	if f.Query != "" {
		if !strings.Contains(searchKey(r.Name), searchKey(f.Query)) && !strings.Contains(r.StudentID, f.Query) {
			return false
		}
	}
	if f.Subject != "" && !strings.Contains(searchKey(r.Subject), searchKey(f.Subject)) {
		return false
	}
	if f.Date != "" {
		want, exact := dateMatcher(f.Date)
		if exact && r.Date != want {
			return false
		}
		if !exact && !strings.Contains(r.Date, want) {
			return false
		}
	}
	return true
}

// FilterLogs returns the log records passing f, newest first.
func (s *State) FilterLogs(f LogFilter) []database.AttendanceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]database.AttendanceRecord, 0, len(s.logs))
	for _, r := range s.logs {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
