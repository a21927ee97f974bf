package testutil

import (
	"fmt"
	"strings"
	"sync"
)

// Report is a single call made against a Recorder.
type Report struct {
	Kind   string
	Id     string
	Params []any
}

// Recorder is a telemetry.API that keeps every report in memory so tests can make
// assertions on what was reported.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

func (r *Recorder) add(kind, id string, params []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, Id: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.add("broken", id, params)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.add("warning", id, params)
}

func (r *Recorder) ReportInfo(msg string, params ...any) {
	r.add("info", msg, params)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.add("debug", msg, params)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.add("count", id, []any{count})
}

// Reports returns all reports of the given kind ("broken", "warning", "info", "debug", "count").
func (r *Recorder) Reports(kind string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Report
	for _, rep := range r.reports {
		if rep.Kind == kind {
			out = append(out, rep)
		}
	}
	return out
}

// Has reports whether some report of the given kind has an id containing the substring.
func (r *Recorder) Has(kind, idSubstr string) bool {
	for _, rep := range r.Reports(kind) {
		if strings.Contains(rep.Id, idSubstr) {
			return true
		}
	}
	return false
}

// Mentions reports whether some report of the given kind has a parameter whose formatted value
// contains the substring.
func (r *Recorder) Mentions(kind, substr string) bool {
	for _, rep := range r.Reports(kind) {
		for _, p := range rep.Params {
			if strings.Contains(fmt.Sprint(p), substr) {
				return true
			}
		}
	}
	return false
}
