// Package orchestrator runs render tasks as a dependency graph with bounded
// concurrency per resource.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"compositor/command"
	"compositor/models"
)

// ErrDependencyFailed marks tasks that never ran because a dependency failed
// or the run was cancelled.
var ErrDependencyFailed = errors.New("dependency failed")

// ResourceType represents different types of hardware resources
type ResourceType string

const (
	ResourceCPU ResourceType = "cpu" // Encoding (parallel, bounded by workers)
	ResourceIO  ResourceType = "io"  // File I/O and stream copy (sequential)
)

// Task represents a unit of work with dependencies and resource requirements
type Task struct {
	ID           string
	PartIndex    int
	Command      command.Command
	Dependencies []string // IDs of tasks that must complete before this one
	Resource     ResourceType
	Status       TaskStatus
	Error        error
	Result       *models.PartResult
	StartTime    time.Time
	EndTime      time.Time
}

// TaskStatus represents the current state of a task
type TaskStatus int

const (
	TaskPending TaskStatus = iota
	TaskReady              // Dependencies met, waiting for resource
	TaskRunning
	TaskCompleted
	TaskFailed
	TaskSkipped // Never started because the run was aborted
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskReady:
		return "ready"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	case TaskSkipped:
		return "skipped"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// ResourceConstraint defines limits for a resource type
type ResourceConstraint struct {
	Type     ResourceType
	MaxSlots int // Maximum concurrent tasks for this resource
}

// DAGOrchestrator manages task execution with dependencies and resource constraints.
//
// Execution is fail-fast: the first failed task cancels the context passed
// to every running task, and tasks that have not started are skipped.
type DAGOrchestrator struct {
	tasks       map[string]*Task
	constraints map[ResourceType]*ResourceConstraint

	activeSlots map[ResourceType]int
	tasksMutex  sync.RWMutex

	onProgress func(completed, total int, task *Task)
}

type taskDone struct {
	task *Task
	err  error
}

// NewDAGOrchestrator creates a new orchestrator with resource constraints
func NewDAGOrchestrator(constraints []ResourceConstraint) *DAGOrchestrator {
	constraintMap := make(map[ResourceType]*ResourceConstraint)
	for i := range constraints {
		constraintMap[constraints[i].Type] = &constraints[i]
	}

	return &DAGOrchestrator{
		tasks:       make(map[string]*Task),
		constraints: constraintMap,
		activeSlots: make(map[ResourceType]int),
	}
}

// AddTask adds a task to the orchestrator
func (o *DAGOrchestrator) AddTask(task *Task) error {
	o.tasksMutex.Lock()
	defer o.tasksMutex.Unlock()

	if task.Command == nil {
		return fmt.Errorf("task %s has no command", task.ID)
	}
	if _, exists := o.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}

	task.Status = TaskPending
	o.tasks[task.ID] = task
	return nil
}

// SetProgressCallback sets a callback for progress updates.
// It is called from Execute's goroutine after every finished task.
func (o *DAGOrchestrator) SetProgressCallback(callback func(completed, total int, task *Task)) {
	o.onProgress = callback
}

// Execute runs all tasks respecting dependencies and resource constraints.
//
// Results are returned ordered by PartIndex, then task ID. On failure the
// error names the first failed task; if ctx was cancelled, ctx.Err() is
// returned instead.
func (o *DAGOrchestrator) Execute(ctx context.Context) ([]*models.PartResult, error) {
	if err := o.validateDAG(); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	total := len(o.tasks)
	completed := 0
	running := 0
	doneCh := make(chan taskDone)
	var firstErr error

	for {
		if firstErr == nil && runCtx.Err() == nil {
			for _, task := range o.readyTasks() {
				if !o.tryAcquireResource(task.Resource) {
					continue
				}
				o.setRunning(task)
				running++
				go func(t *Task) {
					doneCh <- taskDone{task: t, err: t.Command.Run(runCtx)}
				}(task)
			}
		}

		if running == 0 {
			break
		}

		done := <-doneCh
		running--
		completed++
		o.releaseResource(done.task.Resource)

		if err := o.finish(done.task, done.err); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("task %s failed: %w", done.task.ID, err)
			cancel()
		}

		if o.onProgress != nil {
			o.onProgress(completed, total, done.task)
		}
	}

	skipped := o.skipRemaining()
	results := o.collectResults()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	if firstErr != nil {
		return results, firstErr
	}
	if skipped > 0 {
		return results, fmt.Errorf("%d tasks could not be scheduled", skipped)
	}
	return results, nil
}

// readyTasks returns tasks whose dependencies are complete, highest
// priority first.
func (o *DAGOrchestrator) readyTasks() []*Task {
	o.tasksMutex.Lock()
	defer o.tasksMutex.Unlock()

	ready := make([]*Task, 0)
	for _, task := range o.tasks {
		if task.Status == TaskPending && o.dependenciesMet(task) {
			task.Status = TaskReady
		}
		if task.Status == TaskReady {
			ready = append(ready, task)
		}
	}

	sort.Slice(ready, func(i, j int) bool {
		pi, pj := ready[i].Command.GetPriority(), ready[j].Command.GetPriority()
		if pi != pj {
			return pi > pj
		}
		return ready[i].ID < ready[j].ID
	})
	return ready
}

// dependenciesMet checks if all dependencies of a task are completed
func (o *DAGOrchestrator) dependenciesMet(task *Task) bool {
	for _, depID := range task.Dependencies {
		depTask, exists := o.tasks[depID]
		if !exists || depTask.Status != TaskCompleted {
			return false
		}
	}
	return true
}

// tryAcquireResource attempts to acquire a resource slot
func (o *DAGOrchestrator) tryAcquireResource(resourceType ResourceType) bool {
	o.tasksMutex.Lock()
	defer o.tasksMutex.Unlock()

	constraint, exists := o.constraints[resourceType]
	if !exists {
		// No constraint, allow execution
		return true
	}

	if o.activeSlots[resourceType] < constraint.MaxSlots {
		o.activeSlots[resourceType]++
		return true
	}
	return false
}

// releaseResource releases a resource slot
func (o *DAGOrchestrator) releaseResource(resourceType ResourceType) {
	o.tasksMutex.Lock()
	defer o.tasksMutex.Unlock()

	if o.activeSlots[resourceType] > 0 {
		o.activeSlots[resourceType]--
	}
}

func (o *DAGOrchestrator) setRunning(task *Task) {
	o.tasksMutex.Lock()
	defer o.tasksMutex.Unlock()

	task.Status = TaskRunning
	task.StartTime = time.Now()
}

// finish records the outcome of a task and returns err for convenience.
func (o *DAGOrchestrator) finish(task *Task, err error) error {
	o.tasksMutex.Lock()
	defer o.tasksMutex.Unlock()

	task.EndTime = time.Now()
	if err != nil {
		task.Status = TaskFailed
		task.Error = err
		task.Result, _ = models.NewPartResultFailure(task.ID, task.PartIndex, err)
		return err
	}

	task.Status = TaskCompleted
	result, vErr := models.NewPartResultSuccess(task.ID, task.PartIndex, task.Command.GetOutputPath())
	if vErr != nil {
		task.Status = TaskFailed
		task.Error = vErr
		task.Result, _ = models.NewPartResultFailure(task.ID, task.PartIndex, vErr)
		return vErr
	}
	task.Result = result
	return nil
}

// skipRemaining marks every task that never started as skipped.
func (o *DAGOrchestrator) skipRemaining() int {
	o.tasksMutex.Lock()
	defer o.tasksMutex.Unlock()

	skipped := 0
	for _, task := range o.tasks {
		if task.Status == TaskPending || task.Status == TaskReady {
			skipped++
			task.Status = TaskSkipped
			task.Error = ErrDependencyFailed
			task.Result, _ = models.NewPartResultFailure(task.ID, task.PartIndex, ErrDependencyFailed)
		}
	}
	return skipped
}

func (o *DAGOrchestrator) collectResults() []*models.PartResult {
	o.tasksMutex.RLock()
	defer o.tasksMutex.RUnlock()

	tasks := make([]*Task, 0, len(o.tasks))
	for _, task := range o.tasks {
		if task.Result != nil {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].PartIndex != tasks[j].PartIndex {
			return tasks[i].PartIndex < tasks[j].PartIndex
		}
		return tasks[i].ID < tasks[j].ID
	})

	results := make([]*models.PartResult, len(tasks))
	for i, task := range tasks {
		results[i] = task.Result
	}
	return results
}

// validateDAG validates the task graph
func (o *DAGOrchestrator) validateDAG() error {
	o.tasksMutex.RLock()
	defer o.tasksMutex.RUnlock()

	if len(o.tasks) == 0 {
		return fmt.Errorf("no tasks to execute")
	}

	for _, task := range o.tasks {
		for _, depID := range task.Dependencies {
			if _, exists := o.tasks[depID]; !exists {
				return fmt.Errorf("task %s depends on non-existent task %s", task.ID, depID)
			}
		}
	}

	// Simple DFS-based cycle detection
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var hasCycle func(taskID string) bool
	hasCycle = func(taskID string) bool {
		visited[taskID] = true
		recStack[taskID] = true

		for _, depID := range o.tasks[taskID].Dependencies {
			if !visited[depID] {
				if hasCycle(depID) {
					return true
				}
			} else if recStack[depID] {
				return true
			}
		}

		recStack[taskID] = false
		return false
	}

	for taskID := range o.tasks {
		if !visited[taskID] && hasCycle(taskID) {
			return fmt.Errorf("cycle detected in task dependencies")
		}
	}

	return nil
}

// GetTaskStatus returns the status of a task
func (o *DAGOrchestrator) GetTaskStatus(taskID string) (TaskStatus, error) {
	o.tasksMutex.RLock()
	defer o.tasksMutex.RUnlock()

	task, exists := o.tasks[taskID]
	if !exists {
		return TaskPending, fmt.Errorf("task %s not found", taskID)
	}

	return task.Status, nil
}

// GetStats returns task counts per status plus the total.
func (o *DAGOrchestrator) GetStats() map[string]int {
	o.tasksMutex.RLock()
	defer o.tasksMutex.RUnlock()

	stats := map[string]int{"total": len(o.tasks)}
	for _, s := range []TaskStatus{TaskPending, TaskReady, TaskRunning, TaskCompleted, TaskFailed, TaskSkipped} {
		stats[s.String()] = 0
	}
	for _, task := range o.tasks {
		stats[task.Status.String()]++
	}
	return stats
}
