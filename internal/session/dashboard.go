package session

import (
	"math"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

const recentLimit = 5

// Dashboard is the admin overview.
type Dashboard struct {
	TotalStudents    int                         `json:"totalStudents"`
	TodayCount       int                         `json:"todayCount"`
	UniquePresent    int                         `json:"uniquePresent"`
	PresencePercent  int                         `json:"presencePercent"`
	RecentAttendance []database.AttendanceRecord `json:"recentAttendance"`
	TotalRecords     int                         `json:"totalRecords"`
	Date             string                      `json:"date"`
}

// Dashboard computes the overview for the day containing now.
func (s *State) Dashboard(now time.Time) Dashboard {
	s.mu.RLock()
	defer s.mu.RUnlock()

	today := now.Format(database.DateLayout)
	d := Dashboard{
		TotalStudents: len(s.students),
		TotalRecords:  len(s.logs),
		Date:          today,
	}

	present := make(map[string]struct{})
	for _, r := range s.logs {
		if r.Date != today {
			continue
		}
		d.TodayCount++
		present[r.StudentID] = struct{}{}
	}
	d.UniquePresent = len(present)

	if d.TotalStudents > 0 {
		d.PresencePercent = int(math.Round(float64(d.UniquePresent) / float64(d.TotalStudents) * 100))
	}

	n := min(recentLimit, len(s.logs))
	d.RecentAttendance = append([]database.AttendanceRecord{}, s.logs[:n]...)
	return d
}
