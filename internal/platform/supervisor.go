package platform

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// TaskState names a supervised task's lifecycle position. There is no
// restart machinery: a simulation run is deterministic, so a failed task
// would fail identically on every retry. Tasks are discardable units of
// work — launched once, then completed, failed, or cancelled away.
type TaskState string

const (
	TaskInitialized TaskState = "initialized"
	TaskRunning     TaskState = "running"
	TaskCompleted   TaskState = "completed"
	TaskFailed      TaskState = "failed"
)

// ErrTaskCancelled marks tasks that ended because their context was
// cancelled rather than because the work itself reported an error.
var ErrTaskCancelled = errors.New("task cancelled")

// TaskStatus is a point-in-time snapshot of one task.
type TaskStatus struct {
	Name          string    `json:"name"`
	Group         string    `json:"group,omitempty"`
	State         TaskState `json:"state"`
	Error         string    `json:"error,omitempty"`
	StartedAtUTC  string    `json:"started_at_utc,omitempty"`
	FinishedAtUTC string    `json:"finished_at_utc,omitempty"`
}

// Finished statuses are capped; the oldest drop first. A sweep can push
// thousands of tasks through one supervisor.
const finishedStatusLimit = 256

// Supervisor tracks named in-flight tasks. Each task owns a cancel and a
// done channel and leaves a finished status behind for inspection.
type Supervisor struct {
	mu       sync.Mutex
	tasks    map[string]*supervisedTask
	finished map[string]TaskStatus
	order    []string
}

type supervisedTask struct {
	cancel context.CancelFunc
	done   chan struct{}
	status TaskStatus
}

func NewSupervisor() *Supervisor {
	return &Supervisor{
		tasks:    make(map[string]*supervisedTask),
		finished: make(map[string]TaskStatus),
	}
}

// Launch registers a task and starts it on its own goroutine. Names are
// unique among active tasks; relaunching a finished name discards the
// retained status first.
func (s *Supervisor) Launch(ctx context.Context, name, group string, run func(ctx context.Context) error) error {
	if name == "" {
		return errors.New("task name is required")
	}
	if run == nil {
		return errors.New("task runner is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if _, exists := s.tasks[name]; exists {
		s.mu.Unlock()
		return fmt.Errorf("task already active: %s", name)
	}
	s.dropFinishedLocked(name)
	taskCtx, cancel := context.WithCancel(ctx)
	task := &supervisedTask{
		cancel: cancel,
		done:   make(chan struct{}),
		status: TaskStatus{
			Name:  name,
			Group: group,
			State: TaskInitialized,
		},
	}
	s.tasks[name] = task
	s.mu.Unlock()

	go s.runTask(taskCtx, name, task, run)
	return nil
}

func (s *Supervisor) runTask(ctx context.Context, name string, task *supervisedTask, run func(ctx context.Context) error) {
	s.mu.Lock()
	task.status.State = TaskRunning
	task.status.StartedAtUTC = time.Now().UTC().Format(time.RFC3339Nano)
	s.mu.Unlock()

	err := run(ctx)
	if err == nil && ctx.Err() != nil {
		err = ErrTaskCancelled
	}

	s.mu.Lock()
	task.status.FinishedAtUTC = time.Now().UTC().Format(time.RFC3339Nano)
	if err != nil {
		task.status.State = TaskFailed
		task.status.Error = err.Error()
	} else {
		task.status.State = TaskCompleted
	}
	if current, ok := s.tasks[name]; ok && current == task {
		delete(s.tasks, name)
		s.retainFinishedLocked(task.status)
	}
	s.mu.Unlock()
	close(task.done)
}

// Wait blocks until the named task finishes and returns its final
// status. A name that was never launched reports false.
func (s *Supervisor) Wait(name string) (TaskStatus, bool) {
	s.mu.Lock()
	task, active := s.tasks[name]
	status, ok := s.finished[name]
	s.mu.Unlock()

	if !active {
		return status, ok
	}
	<-task.done
	s.mu.Lock()
	status = task.status
	s.mu.Unlock()
	return status, true
}

// Cancel stops the named task and waits for it to unwind. Cancelling an
// inactive name is a no-op.
func (s *Supervisor) Cancel(name string) {
	s.mu.Lock()
	task, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return
	}
	task.cancel()
	<-task.done
}

// CancelGroup stops every active task launched under the given group.
func (s *Supervisor) CancelGroup(group string) {
	s.mu.Lock()
	tasks := make([]*supervisedTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		if task.status.Group == group {
			tasks = append(tasks, task)
		}
	}
	s.mu.Unlock()

	for _, task := range tasks {
		task.cancel()
	}
	for _, task := range tasks {
		<-task.done
	}
}

// CancelAll stops every active task and clears retained statuses.
func (s *Supervisor) CancelAll() {
	s.mu.Lock()
	tasks := make([]*supervisedTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task)
	}
	s.mu.Unlock()

	for _, task := range tasks {
		task.cancel()
	}
	for _, task := range tasks {
		<-task.done
	}

	// Clear after the unwinds so cancelled tasks do not re-register
	// their finished statuses behind the reset.
	s.mu.Lock()
	s.finished = make(map[string]TaskStatus)
	s.order = nil
	s.mu.Unlock()
}

// Active lists the names of running tasks, sorted.
func (s *Supervisor) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status reports one task, active or finished.
func (s *Supervisor) Status(name string) (TaskStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task, ok := s.tasks[name]; ok {
		return task.status, true
	}
	status, ok := s.finished[name]
	return status, ok
}

// Statuses lists every known task, active first by name, then retained
// finished ones.
func (s *Supervisor) Statuses() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.tasks)+len(s.finished))
	for name := range s.tasks {
		names = append(names, name)
	}
	for name := range s.finished {
		if _, active := s.tasks[name]; active {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]TaskStatus, 0, len(names))
	for _, name := range names {
		if task, ok := s.tasks[name]; ok {
			out = append(out, task.status)
			continue
		}
		if status, ok := s.finished[name]; ok {
			out = append(out, status)
		}
	}
	return out
}

func (s *Supervisor) retainFinishedLocked(status TaskStatus) {
	if _, exists := s.finished[status.Name]; !exists {
		s.order = append(s.order, status.Name)
	}
	s.finished[status.Name] = status
	for len(s.order) > finishedStatusLimit {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.finished, oldest)
	}
}

func (s *Supervisor) dropFinishedLocked(name string) {
	if _, ok := s.finished[name]; !ok {
		return
	}
	delete(s.finished, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
