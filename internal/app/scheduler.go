package app

import "time"

// CancelFunc cancels a scheduled callback. Calling it after the callback ran is a no-op.
type CancelFunc func()

// Scheduler defers callbacks.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) CancelFunc
}

// TimerQueue is a Scheduler whose callbacks run only inside Advance, on the
// caller's goroutine. The match loop advances it every tick, so deferred work
// never interleaves with message handling.
type TimerQueue struct {
	now   time.Time
	seq   uint64
	tasks []*timerTask
}

type timerTask struct {
	due       time.Time
	seq       uint64
	fn        func()
	cancelled bool
}

// NewTimerQueue creates an empty queue whose clock starts at now.
func NewTimerQueue(now time.Time) *TimerQueue {
	return &TimerQueue{now: now}
}

// Now returns the queue's clock.
func (q *TimerQueue) Now() time.Time { return q.now }

// Schedule runs fn once the clock reaches now+delay.
func (q *TimerQueue) Schedule(delay time.Duration, fn func()) CancelFunc {
	q.seq++
	task := &timerTask{due: q.now.Add(delay), seq: q.seq, fn: fn}
	q.tasks = append(q.tasks, task)
	return func() { task.cancelled = true }
}

// Advance moves the clock to now and runs every due callback in (due, scheduling)
// order, including callbacks scheduled by other callbacks. It returns how many ran.
func (q *TimerQueue) Advance(now time.Time) int {
	ran := 0
	for {
		task := q.popDue(now)
		if task == nil {
			break
		}
		if task.due.After(q.now) {
			q.now = task.due
		}
		task.fn()
		ran++
	}
	if now.After(q.now) {
		q.now = now
	}
	return ran
}

// Pending is the number of callbacks that are neither run nor cancelled.
func (q *TimerQueue) Pending() int {
	n := 0
	for _, t := range q.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Clear cancels every pending callback.
func (q *TimerQueue) Clear() {
	for _, t := range q.tasks {
		t.cancelled = true
	}
	q.tasks = nil
}

func (q *TimerQueue) popDue(now time.Time) *timerTask {
	best := -1
	live := q.tasks[:0]
	for _, t := range q.tasks {
		if t.cancelled {
			continue
		}
		live = append(live, t)
		if t.due.After(now) {
			continue
		}
		if best < 0 {
			best = len(live) - 1
			continue
		}
		b := live[best]
		if t.due.Before(b.due) || (t.due.Equal(b.due) && t.seq < b.seq) {
			best = len(live) - 1
		}
	}
	for i := len(live); i < len(q.tasks); i++ {
		q.tasks[i] = nil
	}
	q.tasks = live
	if best < 0 {
		return nil
	}
	task := q.tasks[best]
	q.tasks = append(q.tasks[:best], q.tasks[best+1:]...)
	return task
}
