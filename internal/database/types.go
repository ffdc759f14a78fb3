package database

// AttendanceStatus is the outcome of a verification attempt.
type AttendanceStatus string

// AttendanceStatus constants. Only StatusPresent is ever persisted in practice.
const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
	StatusError   AttendanceStatus = "error"
)

// Valid reports whether s is one of the three known statuses.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusError:
		return true
	}
	return false
}

// UnmatchedStudentID is stored on an attendance record when the reported name
// does not match anyone in the roster.
const UnmatchedStudentID = "UNKNOWN"

// Student is a registered roster entry. Students are never mutated in place,
// only inserted and deleted.
type Student struct {
	ID               string `json:"id"` // domain identifier, assigned by the registrar
	Name             string `json:"name"`
	Email            string `json:"email"`
	Department       string `json:"department"`
	Year             string `json:"year"`
	Avatar           string `json:"avatar,omitempty"` // reference face image (data URL or base64); empty if not enrolled
	RegistrationDate string `json:"registrationDate"`
}

// HasReference reports whether the student enrolled a reference image.
func (s *Student) HasReference() bool {
	return s.Avatar != ""
}

// AttendanceRecord is an append-only log entry for a successful verification.
type AttendanceRecord struct {
	ID         string           `json:"id"`        // time-derived
	StudentID  string           `json:"studentId"` // UnmatchedStudentID when no roster match
	Name       string           `json:"name"`      // name as reported by the recognition service
	Date       string           `json:"date"`
	Time       string           `json:"time"`
	Subject    string           `json:"subject"`
	Status     AttendanceStatus `json:"status"`
	Confidence float64          `json:"confidence"`
}

// Display layouts for AttendanceRecord.Date and AttendanceRecord.Time. The
// dashboard compares Date strings, so every writer must use DateLayout.
const (
	DateLayout = "1/2/2006"
	TimeLayout = "3:04:05 PM"
)
