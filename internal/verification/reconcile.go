package verification

import (
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"golang.org/x/text/cases"
)

const (
	// DefaultIdentifiedName is used when the service names nobody.
	DefaultIdentifiedName = "Student"
	// DefaultRecordSubject is stored when the class label was blank.
	DefaultRecordSubject = "General"
)

// Reconcile builds the attendance record for a present outcome. The student ID
// comes from the first roster entry whose name matches the reported name under
// Unicode case folding; otherwise it is database.UnmatchedStudentID. The
// record keeps the reported name even when the roster spelling differs.
func Reconcile(outcome Outcome, roster []database.Student, subject string, now time.Time) database.AttendanceRecord {
	name := outcome.IdentifiedName
	if name == "" {
		name = DefaultIdentifiedName
	}

	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = DefaultRecordSubject
	}

	var confidence float64
	if outcome.Confidence != nil {
		confidence = *outcome.Confidence
	}

	return database.AttendanceRecord{
		ID:         strconv.FormatInt(now.UnixMilli(), 10),
		StudentID:  MatchStudentID(name, roster),
		Name:       name,
		Date:       now.Format(database.DateLayout),
		Time:       now.Format(database.TimeLayout),
		Subject:    subject,
		Status:     outcome.Status,
		Confidence: confidence,
	}
}

// MatchStudentID returns the ID of the first student whose name equals name
// case-insensitively, or database.UnmatchedStudentID.
func MatchStudentID(name string, roster []database.Student) string {
	fold := cases.Fold()
	want := fold.String(name)
	for _, s := range roster {
		if fold.String(s.Name) == want {
			return s.ID
		}
	}
	return database.UnmatchedStudentID
}
