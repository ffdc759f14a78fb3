package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
)

func TestDashboard(t *testing.T) {
	now := time.Date(2025, time.January, 2, 15, 0, 0, 0, time.Local)
	today := now.Format(database.DateLayout)

	store := mock.NewMockStore()
	for _, id := range []string{"S1", "S2", "S3"} {
		store.AddStudent(database.Student{ID: id, Name: "Student " + id})
	}
	store.AddRecord(database.AttendanceRecord{ID: "old", StudentID: "S3", Date: "1/1/2025"})
	for i, sid := range []string{"S1", "S1", "S2", "UNKNOWN", "S2", "S1"} {
		store.AddRecord(database.AttendanceRecord{ID: fmt.Sprintf("r%d", i), StudentID: sid, Date: today})
	}

	s := newState(t, store, database.DefaultStrictness())
	_ = s.Load(context.Background())

	d := s.Dashboard(now)
	if d.TotalStudents != 3 {
		t.Errorf("TotalStudents = %d", d.TotalStudents)
	}
	if d.TodayCount != 6 {
		t.Errorf("TodayCount = %d, want 6", d.TodayCount)
	}
	if d.UniquePresent != 3 {
		t.Errorf("UniquePresent = %d, want 3 (S1, S2, UNKNOWN)", d.UniquePresent)
	}
	if d.PresencePercent != 100 {
		t.Errorf("PresencePercent = %d, want 100", d.PresencePercent)
	}
	if len(d.RecentAttendance) != 5 || d.RecentAttendance[0].ID != "r5" {
		t.Errorf("unexpected recent attendance: %+v", d.RecentAttendance)
	}
	if d.TotalRecords != 7 {
		t.Errorf("TotalRecords = %d", d.TotalRecords)
	}
}

func TestDashboard_Rounding(t *testing.T) {
	now := time.Now()
	store := mock.NewMockStore()
	for _, id := range []string{"S1", "S2", "S3"} {
		store.AddStudent(database.Student{ID: id})
	}
	store.AddRecord(database.AttendanceRecord{StudentID: "S1", Date: now.Format(database.DateLayout)})
	store.AddRecord(database.AttendanceRecord{StudentID: "S2", Date: now.Format(database.DateLayout)})

	s := newState(t, store, database.DefaultStrictness())
	_ = s.Load(context.Background())

	if got := s.Dashboard(now).PresencePercent; got != 67 {
		t.Errorf("PresencePercent = %d, want 67", got)
	}
}

func TestDashboard_EmptyRoster(t *testing.T) {
	s := newState(t, mock.NewMockStore(), database.DefaultStrictness())
	d := s.Dashboard(time.Now())
	if d.PresencePercent != 0 || d.RecentAttendance == nil || len(d.RecentAttendance) != 0 {
		t.Errorf("unexpected empty dashboard: %+v", d)
	}
}
