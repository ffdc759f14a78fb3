package notify

import (
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

func TestEncodeDecode(t *testing.T) {
	at := time.Date(2025, time.May, 1, 8, 0, 0, 0, time.UTC)
	rec := database.AttendanceRecord{ID: "1", StudentID: "STU001", Name: "Alice", Status: database.StatusPresent, Confidence: 0.9}

	data, err := Encode(rec, at)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	ev, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if ev.Type != EventAttendanceRecorded {
		t.Errorf("Type = %q", ev.Type)
	}
	if ev.Record != rec {
		t.Errorf("Record = %+v, want %+v", ev.Record, rec)
	}
	if !ev.RecordedAt.Equal(at) {
		t.Errorf("RecordedAt = %v", ev.RecordedAt)
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode([]byte("{")); err == nil {
		t.Error("expected error for truncated payload")
	}
}

func TestNewRedis_DefaultKey(t *testing.T) {
	r := NewRedis("localhost:0", "")
	defer r.Close()
	if r.key != DefaultKey {
		t.Errorf("key = %q, want %q", r.key, DefaultKey)
	}
}

func TestHealthy_NilSafe(t *testing.T) {
	var r *Redis
	if r.Healthy(t.Context()) {
		t.Error("nil publisher must not be healthy")
	}
}
