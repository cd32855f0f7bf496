package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/amishk599/c2cradar/internal/metrics"
)

type fakeResult struct {
	n    int
	errs []error
}

func (r fakeResult) LogValue() slog.Value { return slog.IntValue(r.n) }
func (r fakeResult) Failures() []error    { return r.errs }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okTask(id string, calls *atomic.Int32) Task {
	return Task{
		ID:       id,
		Name:     "task " + id,
		Interval: time.Hour,
		Run: func(_ context.Context) (Result, error) {
			if calls != nil {
				calls.Add(1)
			}
			return fakeResult{n: 1}, nil
		},
	}
}

// blockingTask signals started and then waits for release or ctx.
func blockingTask(id string, started chan<- struct{}, release <-chan struct{}) Task {
	return Task{
		ID:       id,
		Name:     "blocking",
		Interval: time.Hour,
		Run: func(ctx context.Context) (Result, error) {
			started <- struct{}{}
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return fakeResult{}, nil
		},
	}
}

func newScheduler(t *testing.T, tasks []Task, opts Options) *Scheduler {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	s, err := New(tasks, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func waitDone(t *testing.T, ctx context.Context) {
	t.Helper()
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not done in time")
	}
}

func TestNew_Validation(t *testing.T) {
	run := func(context.Context) (Result, error) { return fakeResult{}, nil }
	tests := []struct {
		name  string
		tasks []Task
		opts  Options
	}{
		{"missing id", []Task{{Name: "x", Interval: time.Hour, Run: run}}, Options{}},
		{"missing run", []Task{{ID: "a", Interval: time.Hour}}, Options{}},
		{"zero interval", []Task{{ID: "a", Run: run}}, Options{}},
		{"duplicate", []Task{{ID: "a", Interval: time.Hour, Run: run}, {ID: "a", Interval: time.Hour, Run: run}}, Options{}},
		{"unknown run_on_start", []Task{{ID: "a", Interval: time.Hour, Run: run}}, Options{RunOnStart: []string{"b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Logger = discardLogger()
			if _, err := New(tt.tasks, tt.opts); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestStatus_Stopped(t *testing.T) {
	s := newScheduler(t, []Task{okTask("a", nil)}, Options{})

	st := s.Status()
	if st.Status != "stopped" {
		t.Errorf("status = %q, want stopped", st.Status)
	}
	if st.Jobs == nil || len(st.Jobs) != 0 {
		t.Errorf("jobs = %#v, want empty non-nil slice", st.Jobs)
	}
}

func TestStatus_Running(t *testing.T) {
	s := newScheduler(t, []Task{okTask("b", nil), okTask("a", nil)}, Options{})
	s.Start(context.Background())
	defer func() { waitDone(t, s.Stop()) }()

	st := s.Status()
	if st.Status != "running" {
		t.Fatalf("status = %q, want running", st.Status)
	}
	if len(st.Jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(st.Jobs))
	}
	if st.Jobs[0].ID != "b" || st.Jobs[1].ID != "a" {
		t.Errorf("jobs not in registration order: %s, %s", st.Jobs[0].ID, st.Jobs[1].ID)
	}
	j := st.Jobs[0]
	if j.Trigger != "interval[1h0m0s]" {
		t.Errorf("trigger = %q", j.Trigger)
	}
	if j.NextRun == nil {
		t.Fatal("next run not set")
	}
	if until := time.Until(*j.NextRun); until < 59*time.Minute || until > time.Hour+time.Second {
		t.Errorf("next run in %s, want about 1h", until)
	}
	if j.Running || j.LastRun != nil {
		t.Errorf("unexpected run state: running=%v last=%v", j.Running, j.LastRun)
	}
}

func TestStartStop_Idempotent(t *testing.T) {
	s := newScheduler(t, []Task{okTask("a", nil)}, Options{})

	waitDone(t, s.Stop())

	s.Start(context.Background())
	s.Start(context.Background())
	if !s.Running() {
		t.Fatal("expected running")
	}
	waitDone(t, s.Stop())
	waitDone(t, s.Stop())
	if s.Running() {
		t.Fatal("expected stopped")
	}

	// restart after stop
	s.Start(context.Background())
	if s.Status().Status != "running" {
		t.Error("restart did not run")
	}
	waitDone(t, s.Stop())
}

func TestRunNow(t *testing.T) {
	var calls atomic.Int32
	s := newScheduler(t, []Task{okTask("a", &calls)}, Options{})

	res, err := s.RunNow(context.Background(), "a")
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if r, ok := res.(fakeResult); !ok || r.n != 1 {
		t.Errorf("result = %#v", res)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRunNow_UnknownTask(t *testing.T) {
	s := newScheduler(t, []Task{okTask("a", nil)}, Options{})
	if _, err := s.RunNow(context.Background(), "nope"); !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("err = %v, want ErrUnknownTask", err)
	}
}

func TestRunNow_SkipsWhileRunning(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	m := metrics.New()
	s := newScheduler(t, []Task{blockingTask("slow", started, release)}, Options{Metrics: m})

	errc := make(chan error, 1)
	go func() {
		_, err := s.RunNow(context.Background(), "slow")
		errc <- err
	}()
	<-started

	if _, err := s.RunNow(context.Background(), "slow"); !errors.Is(err, ErrTaskRunning) {
		t.Fatalf("second run err = %v, want ErrTaskRunning", err)
	}

	close(release)
	if err := <-errc; err != nil {
		t.Fatalf("first run: %v", err)
	}

	// ok and skipped series
	n, err := testutil.GatherAndCount(m.Registry(), "c2cradar_task_runs_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 2 {
		t.Errorf("task_runs series = %d, want 2", n)
	}
}

func TestRunNow_RecoversPanic(t *testing.T) {
	s := newScheduler(t, []Task{{
		ID:       "boom",
		Interval: time.Hour,
		Run: func(context.Context) (Result, error) {
			panic("kaput")
		},
	}}, Options{})
	s.Start(context.Background())
	defer func() { waitDone(t, s.Stop()) }()

	_, err := s.RunNow(context.Background(), "boom")
	if err == nil || !strings.Contains(err.Error(), "kaput") {
		t.Fatalf("err = %v, want panic error", err)
	}

	last := s.Status().Jobs[0].LastRun
	if last == nil || last.Outcome != OutcomePanic {
		t.Fatalf("last run = %#v, want panic outcome", last)
	}

	// the guard is released after a panic
	if _, err := s.RunNow(context.Background(), "boom"); errors.Is(err, ErrTaskRunning) {
		t.Fatal("guard still held after panic")
	}
}

func TestLastRun_Outcomes(t *testing.T) {
	tests := []struct {
		name string
		run  TaskFunc
		want string
	}{
		{"ok", func(context.Context) (Result, error) { return fakeResult{}, nil }, OutcomeOK},
		{"partial", func(context.Context) (Result, error) {
			return fakeResult{errs: []error{errors.New("one item")}}, nil
		}, OutcomePartial},
		{"failed", func(context.Context) (Result, error) { return fakeResult{}, errors.New("down") }, OutcomeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScheduler(t, []Task{{ID: "t", Interval: time.Hour, Run: tt.run}}, Options{})
			s.Start(context.Background())
			defer func() { waitDone(t, s.Stop()) }()

			_, _ = s.RunNow(context.Background(), "t")

			last := s.Status().Jobs[0].LastRun
			if last == nil {
				t.Fatal("no last run")
			}
			if last.Outcome != tt.want {
				t.Errorf("outcome = %q, want %q", last.Outcome, tt.want)
			}
			if last.Trigger != "manual" || last.RunID == "" {
				t.Errorf("trigger = %q run id = %q", last.Trigger, last.RunID)
			}
		})
	}
}

func TestStart_RunOnStart(t *testing.T) {
	var a, b atomic.Int32
	s := newScheduler(t, []Task{okTask("a", &a), okTask("b", &b)}, Options{RunOnStart: []string{"b"}})
	s.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for b.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	waitDone(t, s.Stop())

	if b.Load() != 1 {
		t.Errorf("b calls = %d, want 1", b.Load())
	}
	if a.Load() != 0 {
		t.Errorf("a calls = %d, want 0", a.Load())
	}
}

func TestStop_WaitsForInFlightRun(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	s := newScheduler(t, []Task{blockingTask("slow", started, release)}, Options{RunOnStart: []string{"slow"}})
	s.Start(context.Background())
	<-started

	done := s.Stop()
	select {
	case <-done.Done():
		t.Fatal("stop finished while a run was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	waitDone(t, done)
}

func TestStop_RightAfterStartWaitsForRunOnStart(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	s := newScheduler(t, []Task{blockingTask("slow", started, release)}, Options{RunOnStart: []string{"slow"}})
	s.Start(context.Background())
	done := s.Stop()

	select {
	case <-done.Done():
		t.Fatal("stop finished before the start run")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	waitDone(t, done)
	select {
	case <-started:
	default:
		t.Fatal("start run never executed")
	}
}

func TestStart_ContextCancelAbortsRun(t *testing.T) {
	started := make(chan struct{}, 1)
	s := newScheduler(t, []Task{blockingTask("slow", started, make(chan struct{}))}, Options{RunOnStart: []string{"slow"}})
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	<-started

	cancel()
	waitDone(t, s.Stop())
}
