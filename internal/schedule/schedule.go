// Package schedule runs one-shot, repeating and countdown callbacks on simulation time.
// Nothing here reads the wall clock: time only moves when the owner calls Advance.
package schedule

import (
	"container/heap"
	"fmt"
	"math"
)

// epsilon absorbs float drift when dt values are summed
const epsilon = 1e-9

// TaskID identifies a scheduled task. Zero is never issued.
type TaskID uint64

// Func is a task callback
type Func func(c *Context)

// StepFunc receives the whole seconds left in a countdown
type StepFunc func(c *Context, remaining int)

// Context is handed to every callback in place of captured state
type Context struct {
	ID    TaskID
	Owner string
	Now   float64 // scheduler time at the firing point
	Fired int     // times this task fired, including this call
	s     *Scheduler
}

// Cancel stops the firing task from running again
func (c *Context) Cancel() { c.s.Cancel(c.ID) }

// Scheduler returns the scheduler that fired the task
func (c *Context) Scheduler() *Scheduler { return c.s }

type countdown struct {
	start    float64
	total    float64
	step     float64
	steps    int
	onStep   StepFunc
	complete Func
}

type task struct {
	id        TaskID
	owner     string
	due       float64
	interval  float64 // 0 for one-shot
	fn        Func
	countdown *countdown
	fired     int
	cancelled bool
	gen       uint64 // Advance call during which the task was created
	index     int
}

// Scheduler owns all pending tasks of one match
type Scheduler struct {
	now    float64
	nextID TaskID
	gen    uint64
	queue  taskQueue
	byID   map[TaskID]*task
}

// New creates an empty scheduler at time zero
func New() *Scheduler {
	return &Scheduler{byID: make(map[TaskID]*task)}
}

// Now returns the accumulated simulation time
func (s *Scheduler) Now() float64 { return s.now }

// Pending returns the number of live tasks
func (s *Scheduler) Pending() int { return len(s.byID) }

// PendingFor returns the number of live tasks owned by owner
func (s *Scheduler) PendingFor(owner string) int {
	n := 0
	for _, t := range s.byID {
		if t.owner == owner {
			n++
		}
	}
	return n
}

// After runs fn once, delay seconds from now
func (s *Scheduler) After(owner string, delay float64, fn Func) TaskID {
	return s.add(&task{owner: owner, due: s.now + math.Max(delay, 0), fn: fn})
}

// Every runs fn each interval seconds until cancelled
func (s *Scheduler) Every(owner string, interval float64, fn Func) TaskID {
	if !(interval > 0) {
		panic(fmt.Sprintf("schedule: non-positive interval %v", interval))
	}
	return s.add(&task{owner: owner, due: s.now + interval, interval: interval, fn: fn})
}

// Countdown calls onStep every step seconds with the whole seconds remaining,
// then onComplete once total seconds have elapsed.
func (s *Scheduler) Countdown(owner string, total, step float64, onStep StepFunc, onComplete Func) TaskID {
	if !(step > 0) {
		panic(fmt.Sprintf("schedule: non-positive countdown step %v", step))
	}
	total = math.Max(total, 0)
	cd := &countdown{start: s.now, total: total, step: step, onStep: onStep, complete: onComplete}
	return s.add(&task{owner: owner, due: cd.nextDue(), countdown: cd})
}

func (cd *countdown) nextDue() float64 {
	next := float64(cd.steps+1) * cd.step
	if next >= cd.total-epsilon {
		return cd.start + cd.total
	}
	return cd.start + next
}

// Cancel removes a task. Unknown, fired or cancelled ids are ignored.
func (s *Scheduler) Cancel(id TaskID) {
	t, ok := s.byID[id]
	if !ok {
		return
	}
	t.cancelled = true
	delete(s.byID, id)
}

// CancelOwner cancels every task created by owner and returns how many were live
func (s *Scheduler) CancelOwner(owner string) int {
	n := 0
	for id, t := range s.byID {
		if t.owner == owner {
			t.cancelled = true
			delete(s.byID, id)
			n++
		}
	}
	return n
}

// Advance moves time forward by dt and fires every task that fell due, in
// due-time order with ties broken by creation order. Tasks created by a
// callback are first considered on the next Advance.
func (s *Scheduler) Advance(dt float64) {
	if dt < 0 || math.IsNaN(dt) {
		panic(fmt.Sprintf("schedule: invalid dt %v", dt))
	}
	s.gen++
	s.now += dt

	var deferred []*task
	for s.queue.Len() > 0 {
		t := s.queue[0]
		if t.cancelled {
			heap.Pop(&s.queue)
			continue
		}
		if t.due > s.now+epsilon {
			break
		}
		heap.Pop(&s.queue)
		if t.gen == s.gen {
			deferred = append(deferred, t)
			continue
		}
		s.fire(t)
	}
	for _, t := range deferred {
		if !t.cancelled {
			heap.Push(&s.queue, t)
		}
	}
}

func (s *Scheduler) fire(t *task) {
	t.fired++
	ctx := &Context{ID: t.id, Owner: t.owner, Now: t.due, Fired: t.fired, s: s}

	switch {
	case t.countdown != nil:
		cd := t.countdown
		if t.due >= cd.start+cd.total-epsilon {
			delete(s.byID, t.id)
			t.cancelled = true
			if cd.complete != nil {
				cd.complete(ctx)
			}
			return
		}
		cd.steps++
		remaining := int(math.Ceil(cd.total - float64(cd.steps)*cd.step - epsilon))
		t.due = cd.nextDue()
		heap.Push(&s.queue, t)
		if cd.onStep != nil {
			cd.onStep(ctx, remaining)
		}
	case t.interval > 0:
		t.due += t.interval
		heap.Push(&s.queue, t)
		t.fn(ctx)
	default:
		delete(s.byID, t.id)
		t.cancelled = true
		t.fn(ctx)
	}
}

func (s *Scheduler) add(t *task) TaskID {
	s.nextID++
	t.id = s.nextID
	t.gen = s.gen
	s.byID[t.id] = t
	heap.Push(&s.queue, t)
	return t.id
}

// taskQueue orders tasks by due time, then id
type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].id < q[j].id
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}
