package syncer

import (
	"time"

	"github.com/google/uuid"
)

// Direction names the kind of sync pass.
type Direction string

const (
	DirectionPush      Direction = "push"
	DirectionPull      Direction = "pull"
	DirectionReconcile Direction = "reconcile"
)

// ParseDirection validates a direction name.
func ParseDirection(s string) (Direction, bool) {
	switch d := Direction(s); d {
	case DirectionPush, DirectionPull, DirectionReconcile:
		return d, true
	}
	return "", false
}

// Failure records one file that could not be transferred.
type Failure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Report summarizes one sync pass.
type Report struct {
	ID          string        `json:"id"`
	Direction   Direction     `json:"direction"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Scanned     int           `json:"scanned"`
	Transferred int           `json:"transferred"`
	Skipped     int           `json:"skipped"`
	Failed      int           `json:"failed"`
	Failures    []Failure     `json:"failures,omitempty"`
}

func newReport(direction Direction) Report {
	return Report{
		ID:        uuid.NewString(),
		Direction: direction,
		StartedAt: time.Now().UTC(),
	}
}

// OK reports whether every file in the pass succeeded.
func (r Report) OK() bool {
	return r.Failed == 0
}

type outcome int

const (
	outcomeTransferred outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (o outcome) String() string {
	switch o {
	case outcomeTransferred:
		return "transferred"
	case outcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// taskResult is the per-file result sent back by pool workers.
type taskResult struct {
	name    string
	outcome outcome
	err     error
}

func (r *Report) record(direction Direction, res taskResult) {
	SyncFiles.WithLabelValues(string(direction), res.outcome.String()).Inc()

	switch res.outcome {
	case outcomeTransferred:
		r.Transferred++
	case outcomeSkipped:
		r.Skipped++
	default:
		r.Failed++
		msg := "unknown error"
		if res.err != nil {
			msg = res.err.Error()
		}
		r.Failures = append(r.Failures, Failure{Name: res.name, Error: msg})
	}
}
