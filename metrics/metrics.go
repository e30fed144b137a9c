// Package metrics provides a minimal instrumentation interface with a no-op
// default and a Prometheus-backed implementation. Recorders are passed
// explicitly; there is no package-level recorder.
package metrics

import "time"

// Section outcomes counted by IncSection.
const (
	SectionProcessed = "processed"
	SectionSkipped   = "skipped_short"
	SectionResumed   = "already_processed"
	SectionGated     = "relationships_gated"
)

// Recorder defines the metrics surface used by the extraction and
// reconciliation runs.
type Recorder interface {
	IncSection(outcome string)
	IncCollaboratorCall(call, status string)
	ObserveCollaboratorSeconds(call string, seconds float64)
	SetGraphSize(nodes, edges int)
	AddWeightUpdates(n int)
}

type noopRecorder struct{}

func (noopRecorder) IncSection(string)                          {}
func (noopRecorder) IncCollaboratorCall(string, string)         {}
func (noopRecorder) ObserveCollaboratorSeconds(string, float64) {}
func (noopRecorder) SetGraphSize(int, int)                      {}
func (noopRecorder) AddWeightUpdates(int)                       {}

// Noop returns a Recorder that discards everything.
func Noop() Recorder { return noopRecorder{} }

// OrNoop returns r, or a no-op recorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return Noop()
	}
	return r
}

// TimeCall times one collaborator call. The returned func records the
// outcome status and duration.
func TimeCall(r Recorder, call string) func(status string) {
	start := time.Now()
	return func(status string) {
		r.IncCollaboratorCall(call, status)
		r.ObserveCollaboratorSeconds(call, time.Since(start).Seconds())
	}
}
