package workers

import (
	"sync"
	"time"

	"github.com/prlens/prlens/internal/models"
)

// queueItem wraps a task so a nil payload can travel through the queue as a
// shutdown sentinel.
type queueItem struct {
	task models.Task
}

// TaskQueue is an unbounded FIFO queue with join semantics: Push marks a task
// as unfinished, TaskDone marks one finished, and Join blocks until every
// pushed task has been marked done. Sentinels pushed for worker shutdown do
// not count as unfinished work.
type TaskQueue struct {
	mu         sync.Mutex
	notEmpty   *sync.Cond
	allDone    *sync.Cond
	items      []queueItem
	unfinished int
}

func NewTaskQueue() *TaskQueue {
	q := &TaskQueue{}
	q.notEmpty = sync.NewCond(&q.mu)
	q.allDone = sync.NewCond(&q.mu)
	return q
}

// Push enqueues a task and increments the unfinished counter
func (q *TaskQueue) Push(task models.Task) {
	q.mu.Lock()
	q.items = append(q.items, queueItem{task: task})
	q.unfinished++
	q.mu.Unlock()
	q.notEmpty.Signal()
}

// PushSentinel enqueues a shutdown marker. It is delivered to exactly one
// worker as a nil task and does not require a TaskDone call.
func (q *TaskQueue) PushSentinel() {
	q.mu.Lock()
	q.items = append(q.items, queueItem{})
	q.mu.Unlock()
	q.notEmpty.Signal()
}

// Pop dequeues the oldest item, blocking up to timeout when the queue is
// empty. The second result is false on timeout. A nil task with a true result
// is a shutdown sentinel.
func (q *TaskQueue) Pop(timeout time.Duration) (models.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		expired := false
		timer := time.AfterFunc(timeout, func() {
			q.mu.Lock()
			expired = true
			q.mu.Unlock()
			q.notEmpty.Broadcast()
		})
		defer timer.Stop()

		for len(q.items) == 0 && !expired {
			q.notEmpty.Wait()
		}
		if len(q.items) == 0 {
			return nil, false
		}
	}

	item := q.items[0]
	q.items = q.items[1:]
	return item.task, true
}

// TaskDone marks one previously popped task as finished
func (q *TaskQueue) TaskDone() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.unfinished <= 0 {
		panic("TaskDone called more times than tasks were pushed")
	}
	q.unfinished--
	if q.unfinished == 0 {
		q.allDone.Broadcast()
	}
}

// Join blocks until every pushed task has been marked done. Tasks pushed
// while Join is waiting extend the wait.
func (q *TaskQueue) Join() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.unfinished > 0 {
		q.allDone.Wait()
	}
}

// Len reports the number of items waiting in the queue, sentinels included
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
