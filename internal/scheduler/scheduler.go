// Package scheduler runs the recurring tasks of the daemon, each on its own
// fixed interval, and reports their status.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/amishk599/c2cradar/internal/metrics"
)

var (
	// ErrUnknownTask is returned by RunNow for an id that was never registered.
	ErrUnknownTask = errors.New("unknown task")
	// ErrTaskRunning is returned when a task is fired while its previous run is in flight.
	ErrTaskRunning = errors.New("task already running")
)

// Result is what one task run reports. A run succeeded when it returned no
// error and Failures is empty.
type Result interface {
	slog.LogValuer
	Failures() []error
}

// TaskFunc performs one firing of a task.
type TaskFunc func(ctx context.Context) (Result, error)

// Task is a named recurring unit of work.
type Task struct {
	ID       string
	Name     string
	Interval time.Duration
	Run      TaskFunc
}

// Run outcomes recorded in status and metrics.
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
	OutcomePanic   = "panic"
	OutcomeSkipped = "skipped"
)

// RunInfo describes the most recent completed run of a task.
type RunInfo struct {
	RunID    string        `json:"run_id"`
	Trigger  string        `json:"trigger"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Outcome  string        `json:"outcome"`
	Failures int           `json:"failures"`
	Error    string        `json:"error,omitempty"`
}

type task struct {
	Task
	entryID cron.EntryID
	running atomic.Bool

	mu   sync.Mutex
	last *RunInfo
}

func (t *task) lastRun() *RunInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return nil
	}
	cp := *t.last
	return &cp
}

// Options tune a Scheduler.
type Options struct {
	// RunOnStart lists task ids fired once right after Start.
	RunOnStart []string
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Scheduler is stopped until Start and may be started again after Stop.
type Scheduler struct {
	tasks   []*task
	byID    map[string]*task
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.Mutex
	cron     *cron.Cron
	runCtx   context.Context
	running  bool
	inflight map[string]chan struct{}
}

// New validates tasks and returns a stopped Scheduler.
func New(tasks []Task, opts Options) (*Scheduler, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		byID:     make(map[string]*task, len(tasks)),
		opts:     opts,
		logger:   logger,
		metrics:  opts.Metrics,
		now:      time.Now,
		inflight: make(map[string]chan struct{}),
	}
	for _, t := range tasks {
		if t.ID == "" || t.Run == nil {
			return nil, fmt.Errorf("task %q: id and run func are required", t.Name)
		}
		if t.Interval <= 0 {
			return nil, fmt.Errorf("task %s: interval must be positive, got %s", t.ID, t.Interval)
		}
		if _, dup := s.byID[t.ID]; dup {
			return nil, fmt.Errorf("task %s registered twice", t.ID)
		}
		tt := &task{Task: t}
		s.tasks = append(s.tasks, tt)
		s.byID[t.ID] = tt
	}
	for _, id := range opts.RunOnStart {
		if _, ok := s.byID[id]; !ok {
			return nil, fmt.Errorf("run_on_start: %w: %s", ErrUnknownTask, id)
		}
	}
	return s, nil
}

// Start begins firing every task on its interval. Runs use ctx, so
// cancelling it aborts in-flight work. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	clog := cronLogger{s.logger}
	c := cron.New(cron.WithLogger(clog), cron.WithChain(cron.Recover(clog)))
	for _, t := range s.tasks {
		t := t
		t.entryID = c.Schedule(cron.Every(t.Interval), cron.FuncJob(func() {
			s.fire(t, "timer")
		}))
	}
	s.cron = c
	s.runCtx = ctx
	s.running = true
	c.Start()

	s.logger.Info("scheduler started", "tasks", len(s.tasks))

	// Registered before the goroutine so an early Stop waits for them.
	for _, id := range s.opts.RunOnStart {
		t, ok := s.byID[id]
		if !ok {
			continue
		}
		key := "start:" + id
		done := make(chan struct{})
		s.inflight[key] = done
		go func() {
			defer func() {
				s.mu.Lock()
				delete(s.inflight, key)
				s.mu.Unlock()
				close(done)
			}()
			s.fire(t, "start")
		}()
	}
}

// Stop cancels future firings. In-flight runs keep going; the returned
// context is done once they have finished. Stopping a stopped scheduler is a
// no-op and returns an already-done context.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	done, cancel := context.WithCancel(context.Background())
	if !s.running {
		cancel()
		return done
	}

	cronDone := s.cron.Stop()
	s.running = false
	waiting := make([]chan struct{}, 0, len(s.inflight))
	for _, ch := range s.inflight {
		waiting = append(waiting, ch)
	}

	go func() {
		<-cronDone.Done()
		for _, ch := range waiting {
			<-ch
		}
		cancel()
	}()

	s.logger.Info("scheduler stopped", "in_flight", len(waiting))
	return done
}

// Running reports whether the scheduler is started.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunNow runs a task synchronously with ctx, sharing the re-entrancy guard
// with timer firings. It works whether or not the scheduler is started.
func (s *Scheduler) RunNow(ctx context.Context, id string) (Result, error) {
	t, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	return s.execute(ctx, t, "manual")
}

// fire is the timer path: errors are already logged and recorded.
func (s *Scheduler) fire(t *task, trigger string) {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	_, _ = s.execute(ctx, t, trigger)
}

func (s *Scheduler) execute(ctx context.Context, t *task, trigger string) (res Result, err error) {
	if !t.running.CompareAndSwap(false, true) {
		s.logger.Warn("task still running, skipping firing", "task", t.ID, "trigger", trigger)
		s.metrics.TaskRun(t.ID, OutcomeSkipped, 0)
		return nil, fmt.Errorf("%s: %w", t.ID, ErrTaskRunning)
	}
	defer t.running.Store(false)

	runID := uuid.NewString()
	done := make(chan struct{})
	s.mu.Lock()
	s.inflight[runID] = done
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inflight, runID)
		s.mu.Unlock()
		close(done)
	}()

	logger := s.logger.With("task", t.ID, "run_id", runID)
	logger.Info("task started", "trigger", trigger)

	start := s.now()
	outcome := OutcomeOK
	func() {
		defer func() {
			if r := recover(); r != nil {
				outcome = OutcomePanic
				err = fmt.Errorf("task %s panicked: %v", t.ID, r)
			}
		}()
		res, err = t.Run(ctx)
	}()
	dur := s.now().Sub(start)

	info := &RunInfo{RunID: runID, Trigger: trigger, Started: start, Duration: dur}
	if res != nil {
		info.Failures = len(res.Failures())
	}
	switch {
	case outcome == OutcomePanic:
	case err != nil:
		outcome = OutcomeFailed
	case info.Failures > 0:
		outcome = OutcomePartial
	}
	info.Outcome = outcome
	if err != nil {
		info.Error = err.Error()
	}

	attrs := []any{"outcome", outcome, "duration", dur}
	if res != nil {
		attrs = append(attrs, "result", res)
	}
	switch outcome {
	case OutcomeOK:
		logger.Info("task finished", attrs...)
	case OutcomePartial:
		for _, f := range res.Failures() {
			logger.Warn("task item failed", "error", f)
		}
		logger.Warn("task finished with failures", attrs...)
	default:
		logger.Error("task failed", append(attrs, "error", err)...)
	}

	t.mu.Lock()
	t.last = info
	t.mu.Unlock()
	s.metrics.TaskRun(t.ID, outcome, dur)

	return res, err
}

// JobStatus is the status of one task while the scheduler runs.
type JobStatus struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	NextRun *time.Time `json:"next_run"`
	Trigger string     `json:"trigger"`
	Running bool       `json:"running"`
	LastRun *RunInfo   `json:"last_run,omitempty"`
}

// Status is a point-in-time snapshot of the scheduler.
type Status struct {
	Status string      `json:"status"`
	Jobs   []JobStatus `json:"jobs"`
}

// Status never fails. A stopped scheduler reports no jobs.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return Status{Status: "stopped", Jobs: []JobStatus{}}
	}

	jobs := make([]JobStatus, 0, len(s.tasks))
	for _, t := range s.tasks {
		js := JobStatus{
			ID:      t.ID,
			Name:    t.Name,
			Trigger: fmt.Sprintf("interval[%s]", t.Interval),
			Running: t.running.Load(),
			LastRun: t.lastRun(),
		}
		if e := s.cron.Entry(t.entryID); e.Valid() && !e.Next.IsZero() {
			next := e.Next
			js.NextRun = &next
		}
		jobs = append(jobs, js)
	}
	return Status{Status: "running", Jobs: jobs}
}

// cronLogger routes robfig/cron's logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
