package history

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"shift-redeemer/internal/components/assert"
	"shift-redeemer/internal/components/telemetry"
)

const (
	report_log_record = "log.record"
)

// Log is the append-only record of codes that have already been processed. The in-memory set
// always contains at least what is on disk.
type Log struct {
	path string
	seen map[string]struct{}
	tel  telemetry.API
}

// Open loads the history at path, a missing file is an empty history.
func Open(path string, tel telemetry.API) (*Log, error) {
	assert.NotNil(tel)

	l := &Log{
		path: path,
		seen: make(map[string]struct{}),
		tel:  telemetry.NewScopedAPI("history", tel),
	}

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		l.seen[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	return l, nil
}

func (l *Log) Contains(code string) bool {
	_, ok := l.seen[code]
	return ok
}

// Record adds code to the set and appends it to the file. A failed write is reported and
// otherwise ignored, the code stays in the in-memory set for the rest of the run.
func (l *Log) Record(code string) {
	l.seen[code] = struct{}{}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		l.tel.ReportWarning(report_log_record, fmt.Errorf("failed to save history: %w", err), code)
		return
	}
	defer file.Close()

	_, err = fmt.Fprintf(file, "%s\n", code)
	if err != nil {
		l.tel.ReportWarning(report_log_record, fmt.Errorf("failed to save history: %w", err), code)
	}
}

func (l *Log) Len() int {
	return len(l.seen)
}

// Codes returns the recorded codes in sorted order.
func (l *Log) Codes() []string {
	codes := make([]string, 0, len(l.seen))
	for code := range l.seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
