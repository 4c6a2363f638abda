package core

// TaskFunc is one cooperative task. Tasks run to completion; a task
// must not block.
type TaskFunc func()

// Scheduler runs registered tasks one after another, once per
// RunPending pass. It is single threaded and non-preemptive: the
// suspension points are only between task invocations.
type Scheduler struct {
	initFuncs []func()
	tasks     []TaskFunc
	initDone  bool
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// RegisterInit adds a function to run once, at Init time.
func (s *Scheduler) RegisterInit(fn func()) {
	s.initFuncs = append(s.initFuncs, fn)
}

// RegisterTask adds a task to every RunPending pass. Tasks run in
// registration order.
func (s *Scheduler) RegisterTask(fn TaskFunc) {
	s.tasks = append(s.tasks, fn)
}

// Init runs the registered init functions. Calling it again is a
// no-op.
func (s *Scheduler) Init() {
	if s.initDone {
		return
	}
	s.initDone = true
	for _, fn := range s.initFuncs {
		fn()
	}
}

// RunPending runs every registered task once, in order.
func (s *Scheduler) RunPending() {
	for _, fn := range s.tasks {
		fn()
	}
}
