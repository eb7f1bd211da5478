package importer

import (
	"time"
)

// Report is the result of one importer.
type Report struct {
	Importer string

	// Discovered counts asset directories selected for loading.
	Discovered int

	// Loaded counts assets written to the output.
	Loaded int

	// Failed counts assets whose loader returned an error.
	Failed int

	// Dropped counts loaded assets removed by validation or id collisions.
	Dropped int

	// Output is the generated file, empty when nothing was written.
	Output string

	Duration time.Duration

	// Err is set when the importer could not run or write its output.
	Err error
}

// OK reports whether the importer wrote its output.
func (r Report) OK() bool {
	return r.Err == nil
}

// Summary is the result of a whole import run.
type Summary struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Reports   []Report
}

// Totals adds up the per-importer counts.
func (s *Summary) Totals() Report {
	total := Report{Importer: "total", Duration: s.Duration}
	for _, r := range s.Reports {
		total.Discovered += r.Discovered
		total.Loaded += r.Loaded
		total.Failed += r.Failed
		total.Dropped += r.Dropped
	}
	return total
}

// FailedImporters returns the reports of importers that did not finish.
func (s *Summary) FailedImporters() []Report {
	var failed []Report
	for _, r := range s.Reports {
		if !r.OK() {
			failed = append(failed, r)
		}
	}
	return failed
}

// HasFailures reports whether any importer or any asset failed.
func (s *Summary) HasFailures() bool {
	for _, r := range s.Reports {
		if !r.OK() || r.Failed > 0 {
			return true
		}
	}
	return false
}
