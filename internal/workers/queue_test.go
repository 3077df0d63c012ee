package workers

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prlens/prlens/internal/models"
)

func TestTaskQueueFIFO(t *testing.T) {
	queue := NewTaskQueue()

	first := &models.StatisticsTask{RuleID: "first"}
	second := &models.StatisticsTask{RuleID: "second"}
	queue.Push(first)
	queue.Push(second)

	task, ok := queue.Pop(time.Second)
	require.True(t, ok)
	assert.Equal(t, first, task)

	task, ok = queue.Pop(time.Second)
	require.True(t, ok)
	assert.Equal(t, second, task)

	assert.Equal(t, 0, queue.Len())
}

func TestTaskQueuePopTimeout(t *testing.T) {
	queue := NewTaskQueue()

	start := time.Now()
	task, ok := queue.Pop(50 * time.Millisecond)

	assert.False(t, ok)
	assert.Nil(t, task)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestTaskQueuePopWakesOnPush(t *testing.T) {
	queue := NewTaskQueue()

	go func() {
		time.Sleep(20 * time.Millisecond)
		queue.Push(&models.StatisticsTask{RuleID: "late"})
	}()

	task, ok := queue.Pop(time.Second)

	require.True(t, ok)
	assert.Equal(t, "late", task.(*models.StatisticsTask).RuleID)
}

func TestTaskQueueJoin(t *testing.T) {
	queue := NewTaskQueue()

	for i := 0; i < 5; i++ {
		queue.Push(&models.StatisticsTask{})
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			_, ok := queue.Pop(time.Second)
			if ok {
				queue.TaskDone()
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		queue.Join()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Join did not return after all tasks were done")
	}
	wg.Wait()
}

func TestTaskQueueJoinWaitsForChainedWork(t *testing.T) {
	queue := NewTaskQueue()
	queue.Push(&models.StatisticsTask{RuleID: "parent"})

	var processed []string
	var mu sync.Mutex

	go func() {
		for {
			task, ok := queue.Pop(200 * time.Millisecond)
			if !ok {
				return
			}
			stat := task.(*models.StatisticsTask)
			mu.Lock()
			processed = append(processed, stat.RuleID)
			mu.Unlock()
			if stat.RuleID == "parent" {
				queue.Push(&models.StatisticsTask{RuleID: "child"})
			}
			queue.TaskDone()
		}
	}()

	queue.Join()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"parent", "child"}, processed)
}

func TestTaskQueueSentinel(t *testing.T) {
	queue := NewTaskQueue()
	queue.PushSentinel()

	task, ok := queue.Pop(time.Second)

	require.True(t, ok)
	assert.Nil(t, task)

	// Sentinels do not count as unfinished work
	done := make(chan struct{})
	go func() {
		queue.Join()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Join blocked on a sentinel")
	}
}

func TestTaskDoneWithoutPushPanics(t *testing.T) {
	queue := NewTaskQueue()

	assert.Panics(t, func() {
		queue.TaskDone()
	})
}
