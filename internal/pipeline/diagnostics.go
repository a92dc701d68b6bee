package pipeline

import (
	"fmt"
	"sync"
)

// Severity grades a diagnostic finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is one recorded diagnostic.
type Finding struct {
	Step     string
	Severity Severity
	Message  string
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Step, f.Message)
}

// Diagnostics accumulates findings across pipeline steps. Safe for
// concurrent use so steps may report from helper goroutines.
type Diagnostics struct {
	mu       sync.Mutex
	findings []Finding
}

// NewDiagnostics returns an empty collector.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// Add records a finding.
func (d *Diagnostics) Add(step string, severity Severity, format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.findings = append(d.findings, Finding{
		Step:     step,
		Severity: severity,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Infof records an informational finding.
func (d *Diagnostics) Infof(step, format string, args ...any) {
	d.Add(step, SeverityInfo, format, args...)
}

// Warnf records a warning finding.
func (d *Diagnostics) Warnf(step, format string, args ...any) {
	d.Add(step, SeverityWarning, format, args...)
}

// Findings returns a copy of everything recorded so far.
func (d *Diagnostics) Findings() []Finding {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Finding(nil), d.findings...)
}

// Warnings returns only the warning and error findings.
func (d *Diagnostics) Warnings() []Finding {
	var filtered []Finding
	for _, finding := range d.Findings() {
		if finding.Severity != SeverityInfo {
			filtered = append(filtered, finding)
		}
	}
	return filtered
}
