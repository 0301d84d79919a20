package telemetry

import (
	"reflect"
	"testing"
	"time"
)

type fixedInvocation struct {
	requestID string
	remaining int64
}

func (f fixedInvocation) RequestID() string          { return f.requestID }
func (f fixedInvocation) FunctionName() string       { return "predict-fn" }
func (f fixedInvocation) FunctionVersion() string    { return "$LATEST" }
func (f fixedInvocation) RemainingTimeMillis() int64 { return f.remaining }

func TestRecordRow(t *testing.T) {
	// Wednesday
	now := time.Date(2024, 5, 8, 13, 4, 5, 123456000, time.UTC)
	rec := NewRecord(now, 12345678*time.Nanosecond, ResourceSnapshot{MemoryUsedMB: 512.004, CPUPercent: 3}, fixedInvocation{
		requestID: "req-1",
		remaining: 2875,
	})

	want := []string{
		"2024-05-08T13:04:05.123456+00:00",
		"2",
		"13",
		"12.35",
		"512.0",
		"3.0",
		"req-1",
		"predict-fn",
		"$LATEST",
		"2875",
	}
	if got := rec.Row(); !reflect.DeepEqual(got, want) {
		t.Errorf("Row() = %v, want %v", got, want)
	}
	if len(rec.Row()) != len(Header) {
		t.Errorf("Row width %d does not match header width %d", len(rec.Row()), len(Header))
	}
}

func TestRecordDayOfWeek(t *testing.T) {
	tests := []struct {
		day  time.Time
		want int
	}{
		{time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), 0},  // Monday
		{time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), 5}, // Saturday
		{time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC), 6}, // Sunday
	}

	for _, tt := range tests {
		rec := Record{Timestamp: tt.day}
		if got := rec.DayOfWeek(); got != tt.want {
			t.Errorf("DayOfWeek(%s) = %d, want %d", tt.day.Weekday(), got, tt.want)
		}
	}
}

func TestRecordUsesUTC(t *testing.T) {
	zone := time.FixedZone("AEST", 10*3600)
	now := time.Date(2024, 5, 8, 8, 0, 0, 0, zone)

	rec := NewRecord(now, 0, ResourceSnapshot{}, nil)
	if rec.Timestamp.Hour() != 22 {
		t.Errorf("Expected UTC hour 22, got %d", rec.Timestamp.Hour())
	}
	if rec.RequestID != "" {
		t.Errorf("Expected empty request id without invocation context")
	}
}

func TestFormatDecimal(t *testing.T) {
	tests := map[float64]string{
		0:      "0.0",
		12:     "12.0",
		12.5:   "12.5",
		0.1:    "0.1",
		101.25: "101.25",
	}
	for in, want := range tests {
		if got := formatDecimal(in); got != want {
			t.Errorf("formatDecimal(%v) = %q, want %q", in, got, want)
		}
	}
}
