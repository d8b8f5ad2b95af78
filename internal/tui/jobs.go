package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

type jobKind string

type jobStatus string

const (
	jobKindEncode   jobKind = "encode"
	jobKindExtract  jobKind = "extract"
	jobKindConverse jobKind = "converse"
)

const (
	jobStatusRunning   jobStatus = "running"
	jobStatusSucceeded jobStatus = "succeeded"
	jobStatusFailed    jobStatus = "failed"
	jobStatusCanceled  jobStatus = "canceled"
)

// jobSnapshot describes one job at a point in time. Generation is the
// session generation the job was started for.
type jobSnapshot struct {
	ID         string
	Kind       jobKind
	Generation uint64
	Status     jobStatus
	StartedAt  time.Time
	Duration   time.Duration
	Err        string
}

type jobSignalMsg struct {
	Snapshot jobSnapshot
}

type jobResultEnvelope struct {
	Snapshot jobSnapshot
	Payload  tea.Msg
}

type jobRunner func(context.Context) (tea.Msg, error)

// jobBus runs encoding and provider calls off the event loop. Each job owns
// a context that CancelStale aborts once its generation is left behind.
type jobBus struct {
	logger *zap.Logger

	mu      sync.Mutex
	seq     int
	running map[string]runningJob
}

type runningJob struct {
	generation uint64
	cancel     context.CancelFunc
}

func newJobBus(logger *zap.Logger) *jobBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &jobBus{logger: logger.Named("jobs"), running: map[string]runningJob{}}
}

// Start registers the job immediately, so a reset issued before the command
// runs still cancels it, then returns a sequence of a start signal and the run.
func (b *jobBus) Start(kind jobKind, generation uint64, runner jobRunner) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())

	b.mu.Lock()
	b.seq++
	id := fmt.Sprintf("%s-%d", kind, b.seq)
	b.running[id] = runningJob{generation: generation, cancel: cancel}
	b.mu.Unlock()

	started := time.Now()
	base := jobSnapshot{ID: id, Kind: kind, Generation: generation, StartedAt: started}

	signal := func() tea.Msg {
		snap := base
		snap.Status = jobStatusRunning
		return jobSignalMsg{Snapshot: snap}
	}
	run := func() tea.Msg {
		defer b.finish(id)
		payload, err := runner(ctx)

		snap := base
		snap.Duration = time.Since(started)
		switch {
		case errors.Is(ctx.Err(), context.Canceled):
			snap.Status = jobStatusCanceled
		case err != nil:
			snap.Status = jobStatusFailed
		default:
			snap.Status = jobStatusSucceeded
		}
		if err != nil {
			snap.Err = err.Error()
		}
		b.logger.Info("job finished",
			zap.String("id", id),
			zap.String("kind", string(kind)),
			zap.Uint64("generation", generation),
			zap.String("status", string(snap.Status)),
			zap.Duration("duration", snap.Duration),
			zap.Error(err),
		)
		return jobResultEnvelope{Snapshot: snap, Payload: payload}
	}
	return tea.Sequence(signal, run)
}

// CancelStale aborts every running job that belongs to a generation other
// than current and reports how many it reached.
func (b *jobBus) CancelStale(current uint64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	canceled := 0
	for _, job := range b.running {
		if job.generation != current {
			job.cancel()
			canceled++
		}
	}
	return canceled
}

// Running reports how many jobs have not finished yet.
func (b *jobBus) Running() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.running)
}

func (b *jobBus) finish(id string) {
	b.mu.Lock()
	job, ok := b.running[id]
	delete(b.running, id)
	b.mu.Unlock()
	if ok {
		job.cancel()
	}
}
