// Package telemetry records one row per invocation into a local CSV log and
// merges the rows into the durable log object in the log bucket.
//
// A "<local>.merged" watermark next to the local log counts the rows already
// merged, so each merge appends only the new rows and the durable log holds
// every invocation once.
//
// The durable log is rewritten in full on every merge. There is no
// conditional write, so two environments merging at the same time can lose
// each other's rows (last writer wins).
package telemetry

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Header is the first row of both the local and the durable log
var Header = []string{
	"Timestamp",
	"DayOfWeek",
	"Hour",
	"Latency(ms)",
	"MemoryUsed(MB)",
	"CPUUsage(%)",
	"RequestID",
	"FunctionName",
	"FunctionVersion",
	"RemainingTime(ms)",
}

const timestampLayout = "2006-01-02T15:04:05.000000-07:00"

// InvocationContext is the host metadata of the running invocation
type InvocationContext interface {
	RequestID() string
	FunctionName() string
	FunctionVersion() string
	RemainingTimeMillis() int64
}

// Record is one telemetry row. Records are never modified once written.
type Record struct {
	Timestamp       time.Time
	LatencyMs       float64
	MemoryUsedMB    float64
	CPUPercent      float64
	RequestID       string
	FunctionName    string
	FunctionVersion string
	RemainingTimeMs int64
}

// NewRecord builds a record for an invocation observed at now
func NewRecord(now time.Time, latency time.Duration, snapshot ResourceSnapshot, inv InvocationContext) Record {
	r := Record{
		Timestamp:    now.UTC(),
		LatencyMs:    float64(latency.Nanoseconds()) / 1e6,
		MemoryUsedMB: snapshot.MemoryUsedMB,
		CPUPercent:   snapshot.CPUPercent,
	}
	if inv != nil {
		r.RequestID = inv.RequestID()
		r.FunctionName = inv.FunctionName()
		r.FunctionVersion = inv.FunctionVersion()
		r.RemainingTimeMs = inv.RemainingTimeMillis()
	}
	return r
}

// DayOfWeek counts from Monday = 0
func (r Record) DayOfWeek() int {
	return (int(r.Timestamp.Weekday()) + 6) % 7
}

// Row renders the record in Header order
func (r Record) Row() []string {
	return []string{
		r.Timestamp.Format(timestampLayout),
		strconv.Itoa(r.DayOfWeek()),
		strconv.Itoa(r.Timestamp.Hour()),
		formatDecimal(round2(r.LatencyMs)),
		formatDecimal(round2(r.MemoryUsedMB)),
		formatDecimal(r.CPUPercent),
		r.RequestID,
		r.FunctionName,
		r.FunctionVersion,
		strconv.FormatInt(r.RemainingTimeMs, 10),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// formatDecimal prints the shortest representation and keeps a decimal
// point on whole numbers, so 12 is written as 12.0
func formatDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
