package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"compositor/command"
)

// MockCommand is a test command that simulates work
type MockCommand struct {
	id         string
	outputPath string
	duration   time.Duration
	shouldFail bool
	executed   atomic.Bool
	cancelled  atomic.Bool
	priority   int

	// running counts concurrently running commands sharing the counter.
	running *int32
	peak    *int32
}

func (m *MockCommand) Run(ctx context.Context) error {
	if m.running != nil {
		n := atomic.AddInt32(m.running, 1)
		for {
			p := atomic.LoadInt32(m.peak)
			if n <= p || atomic.CompareAndSwapInt32(m.peak, p, n) {
				break
			}
		}
		defer atomic.AddInt32(m.running, -1)
	}

	select {
	case <-time.After(m.duration):
	case <-ctx.Done():
		m.cancelled.Store(true)
		return ctx.Err()
	}

	m.executed.Store(true)
	if m.shouldFail {
		return errors.New("mock command failed")
	}
	return nil
}

func (m *MockCommand) GetOutputPath() string {
	return m.outputPath
}

func (m *MockCommand) DryRun() (string, error) {
	return fmt.Sprintf("ffmpeg mock command %s", m.id), nil
}

func (m *MockCommand) BuildArgs() []string {
	return []string{"-i", "input.mp4", "-c:v", "copy", m.outputPath}
}

func (m *MockCommand) GetPriority() int {
	return m.priority
}

func (m *MockCommand) SetPriority(priority int) command.Command {
	m.priority = priority
	return m
}

func (m *MockCommand) GetTaskType() command.TaskType {
	return command.TaskTypeCut
}

func (m *MockCommand) GetInputPath() string {
	return "input.mp4"
}

func newTask(id string, d time.Duration, deps ...string) *Task {
	return &Task{
		ID:           id,
		Command:      &MockCommand{id: id, outputPath: "/tmp/" + id + ".mp4", duration: d},
		Dependencies: deps,
		Resource:     ResourceCPU,
	}
}

func addTasks(t *testing.T, orch *DAGOrchestrator, tasks ...*Task) {
	t.Helper()
	for _, task := range tasks {
		if err := orch.AddTask(task); err != nil {
			t.Fatalf("Failed to add task %s: %v", task.ID, err)
		}
	}
}

func TestDAGOrchestrator_SimpleSequence(t *testing.T) {
	orch := NewDAGOrchestrator([]ResourceConstraint{
		{Type: ResourceCPU, MaxSlots: 2},
	})

	// A -> B -> C (sequential)
	taskA := newTask("A", 10*time.Millisecond)
	taskB := newTask("B", 10*time.Millisecond, "A")
	taskC := newTask("C", 10*time.Millisecond, "B")
	addTasks(t, orch, taskA, taskB, taskC)

	results, err := orch.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(results) != 3 {
		t.Errorf("Expected 3 results, got %d", len(results))
	}

	if taskB.StartTime.Before(taskA.EndTime) {
		t.Errorf("Task B should start after task A completes")
	}
	if taskC.StartTime.Before(taskB.EndTime) {
		t.Errorf("Task C should start after task B completes")
	}
}

func TestDAGOrchestrator_Parallel(t *testing.T) {
	orch := NewDAGOrchestrator([]ResourceConstraint{
		{Type: ResourceCPU, MaxSlots: 3},
	})

	addTasks(t, orch,
		newTask("A", 50*time.Millisecond),
		newTask("B", 50*time.Millisecond),
		newTask("C", 50*time.Millisecond),
	)

	start := time.Now()
	results, err := orch.Execute(context.Background())
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(results) != 3 {
		t.Errorf("Expected 3 results, got %d", len(results))
	}

	// Three 50ms tasks in parallel should take well under 150ms.
	if elapsed > 140*time.Millisecond {
		t.Errorf("Tasks did not run in parallel: took %v", elapsed)
	}
}

func TestDAGOrchestrator_ResourceConstraint(t *testing.T) {
	orch := NewDAGOrchestrator([]ResourceConstraint{
		{Type: ResourceCPU, MaxSlots: 2},
	})

	var running, peak int32
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("cut_%03d", i)
		task := &Task{
			ID:        id,
			PartIndex: i,
			Command: &MockCommand{id: id, outputPath: "/tmp/" + id + ".mp4",
				duration: 20 * time.Millisecond, running: &running, peak: &peak},
			Resource: ResourceCPU,
		}
		addTasks(t, orch, task)
	}

	results, err := orch.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if peak > 2 {
		t.Errorf("Expected at most 2 concurrent tasks, saw %d", peak)
	}
	for i, r := range results {
		if r.PartIndex != i {
			t.Errorf("Results not ordered by part index: %d at %d", r.PartIndex, i)
		}
	}
}

func TestDAGOrchestrator_MixedResources(t *testing.T) {
	orch := NewDAGOrchestrator([]ResourceConstraint{
		{Type: ResourceCPU, MaxSlots: 4},
		{Type: ResourceIO, MaxSlots: 1},
	})

	cuts := []string{"cut_000", "cut_001", "cut_002"}
	for i, id := range cuts {
		task := newTask(id, 10*time.Millisecond)
		task.PartIndex = i
		addTasks(t, orch, task)
	}

	concat := newTask("concat", 5*time.Millisecond, cuts...)
	concat.Resource = ResourceIO
	concat.PartIndex = len(cuts)
	addTasks(t, orch, concat)

	results, err := orch.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(results))
	}
	if results[3].TaskID != "concat" {
		t.Errorf("Expected concat result last, got %s", results[3].TaskID)
	}

	for _, id := range cuts {
		status, _ := orch.GetTaskStatus(id)
		if status != TaskCompleted {
			t.Errorf("Task %s status = %s", id, status)
		}
	}
	if concat.StartTime.Before(orch.tasks["cut_002"].EndTime) {
		t.Error("Concat started before all cuts finished")
	}
}

func TestDAGOrchestrator_Priority(t *testing.T) {
	orch := NewDAGOrchestrator([]ResourceConstraint{
		{Type: ResourceCPU, MaxSlots: 1},
	})

	low := newTask("a_low", 5*time.Millisecond)
	high := newTask("b_high", 5*time.Millisecond)
	high.Command.SetPriority(command.PriorityHigh)
	addTasks(t, orch, low, high)

	if _, err := orch.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if high.StartTime.After(low.StartTime) {
		t.Error("Higher priority task should start first")
	}
}

func TestDAGOrchestrator_CycleDetection(t *testing.T) {
	orch := NewDAGOrchestrator(nil)
	addTasks(t, orch,
		newTask("A", time.Millisecond, "C"),
		newTask("B", time.Millisecond, "A"),
		newTask("C", time.Millisecond, "B"),
	)

	_, err := orch.Execute(context.Background())
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Errorf("Expected cycle detection error, got %v", err)
	}
}

func TestDAGOrchestrator_MissingDependency(t *testing.T) {
	orch := NewDAGOrchestrator(nil)
	addTasks(t, orch, newTask("A", time.Millisecond, "ghost"))

	if _, err := orch.Execute(context.Background()); err == nil {
		t.Error("Expected error for missing dependency")
	}
}

func TestDAGOrchestrator_AddTaskErrors(t *testing.T) {
	orch := NewDAGOrchestrator(nil)
	addTasks(t, orch, newTask("A", time.Millisecond))

	if err := orch.AddTask(newTask("A", time.Millisecond)); err == nil {
		t.Error("Expected error for duplicate task")
	}
	if err := orch.AddTask(&Task{ID: "B"}); err == nil {
		t.Error("Expected error for task without command")
	}
	if _, err := NewDAGOrchestrator(nil).Execute(context.Background()); err == nil {
		t.Error("Expected error for empty graph")
	}
}

func TestDAGOrchestrator_FailFast(t *testing.T) {
	orch := NewDAGOrchestrator([]ResourceConstraint{
		{Type: ResourceCPU, MaxSlots: 2},
	})

	failing := newTask("cut_000", 10*time.Millisecond)
	failing.Command.(*MockCommand).shouldFail = true
	slow := newTask("cut_001", 5*time.Second)
	slow.PartIndex = 1
	concat := newTask("concat", time.Millisecond, "cut_000", "cut_001")
	concat.PartIndex = 2
	addTasks(t, orch, failing, slow, concat)

	start := time.Now()
	results, err := orch.Execute(context.Background())
	if err == nil {
		t.Fatal("Expected error from failing task")
	}
	if !strings.Contains(err.Error(), "cut_000") {
		t.Errorf("Error should name the failed task: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Slow task was not cancelled")
	}
	if !slow.Command.(*MockCommand).cancelled.Load() {
		t.Error("Expected running task to see cancellation")
	}

	status, _ := orch.GetTaskStatus("concat")
	if status != TaskSkipped {
		t.Errorf("Concat status = %s; want skipped", status)
	}
	if concat.Command.(*MockCommand).executed.Load() {
		t.Error("Concat should not run after a failure")
	}

	for _, r := range results {
		if r.Success {
			t.Errorf("Unexpected successful result %s", r.TaskID)
		}
	}
	if len(results) != 3 {
		t.Errorf("Expected 3 results, got %d", len(results))
	}
}

func TestDAGOrchestrator_Cancelled(t *testing.T) {
	orch := NewDAGOrchestrator(nil)
	addTasks(t, orch, newTask("A", 5*time.Second), newTask("B", time.Millisecond, "A"))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := orch.Execute(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDAGOrchestrator_ProgressCallback(t *testing.T) {
	orch := NewDAGOrchestrator(nil)
	addTasks(t, orch,
		newTask("A", time.Millisecond),
		newTask("B", time.Millisecond),
		newTask("C", time.Millisecond, "A", "B"),
	)

	var mu sync.Mutex
	var calls []int
	orch.SetProgressCallback(func(completed, total int, task *Task) {
		mu.Lock()
		defer mu.Unlock()
		if total != 3 {
			t.Errorf("Expected total 3, got %d", total)
		}
		calls = append(calls, completed)
	})

	if _, err := orch.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(calls) != 3 || calls[2] != 3 {
		t.Errorf("Unexpected progress calls: %v", calls)
	}
}

func TestDAGOrchestrator_GetStats(t *testing.T) {
	orch := NewDAGOrchestrator(nil)
	addTasks(t, orch, newTask("A", time.Millisecond), newTask("B", time.Millisecond))

	stats := orch.GetStats()
	if stats["total"] != 2 || stats["pending"] != 2 {
		t.Errorf("Unexpected stats before execution: %v", stats)
	}

	if _, err := orch.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	stats = orch.GetStats()
	if stats["completed"] != 2 || stats["pending"] != 0 {
		t.Errorf("Unexpected stats after execution: %v", stats)
	}

	if _, err := orch.GetTaskStatus("missing"); err == nil {
		t.Error("Expected error for unknown task")
	}
}
