// Package notify publishes recorded attendance to a Redis list so other
// services can follow check-ins as they happen.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis list attendance events are pushed to.
const DefaultKey = "attendance:events"

// Event is the payload pushed for each recorded attendance.
type Event struct {
	Type       string                    `json:"type"`
	Record     database.AttendanceRecord `json:"record"`
	RecordedAt time.Time                 `json:"recordedAt"`
}

// EventAttendanceRecorded is the only event type published today.
const EventAttendanceRecorded = "attendance.recorded"

// Encode serializes an event for the list.
func Encode(record database.AttendanceRecord, at time.Time) ([]byte, error) {
	data, err := json.Marshal(Event{Type: EventAttendanceRecorded, Record: record, RecordedAt: at})
	if err != nil {
		return nil, fmt.Errorf("encode attendance event: %w", err)
	}
	return data, nil
}

// Decode parses a payload produced by Encode.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode attendance event: %w", err)
	}
	return ev, nil
}

// Redis pushes events with LPUSH, so consumers BRPOP them oldest first.
type Redis struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr, key string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	if key == "" {
		key = DefaultKey
	}
	return &Redis{client: client, key: key, now: time.Now}
}

// Publish pushes one attendance record.
func (r *Redis) Publish(ctx context.Context, record database.AttendanceRecord) error {
	data, err := Encode(record, r.now())
	if err != nil {
		return err
	}
	if err := r.client.LPush(ctx, r.key, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", r.key, err)
	}
	return nil
}

// Next blocks up to timeout for the oldest unread event. It returns
// (nil, nil) when nothing arrived.
func (r *Redis) Next(ctx context.Context, timeout time.Duration) (*Event, error) {
	res, err := r.client.BRPop(ctx, timeout, r.key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read from %s: %w", r.key, err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of length %d", len(res))
	}
	ev, err := Decode([]byte(res[1]))
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.client == nil {
		return false
	}
	return r.client.Ping(ctx).Err() == nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
