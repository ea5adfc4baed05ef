package browser

import (
	"fmt"
	"sync"
	"time"

	"github.com/dkazmin/normcheck/internal/refs"
)

// Lookup resolves one reference to a terminal browser outcome.
type Lookup interface {
	Check(ref refs.Reference) Result
}

// LookupTask is one reference queued for a browser lookup.
type LookupTask struct {
	ID        string
	Reference refs.Reference
}

// LookupResult pairs a finished task with its terminal outcome.
type LookupResult struct {
	Task    LookupTask
	Result  Result
	Elapsed time.Duration
}

// ProgressUpdate reports worker activity for observers.
type ProgressUpdate struct {
	TaskID    string
	Query     string
	Status    Status
	Message   string
	Completed int
	Total     int
}

// WorkerPool runs browser lookups on a fixed number of concurrent workers.
// Each worker drives its own browser sessions exclusively; the only shared
// resource is the checker's result cache, which serializes its own access.
type WorkerPool struct {
	checker      Lookup
	tasks        chan LookupTask
	results      chan LookupResult
	progressChan chan ProgressUpdate
	wg           sync.WaitGroup
	numWorkers   int

	mu             sync.Mutex
	totalTasks     int
	completedTasks int
}

// NewWorkerPool creates a pool around the checker.
func NewWorkerPool(checker Lookup, numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 5
	}

	return &WorkerPool{
		checker:      checker,
		numWorkers:   numWorkers,
		tasks:        make(chan LookupTask, numWorkers*2),
		results:      make(chan LookupResult, numWorkers*2),
		progressChan: make(chan ProgressUpdate, 100),
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *WorkerPool) worker(workerID int) {
	defer wp.wg.Done()

	for task := range wp.tasks {
		start := time.Now()

		query := FormatQuery(task.Reference)
		wp.sendProgress(ProgressUpdate{
			TaskID:  task.ID,
			Query:   query,
			Message: fmt.Sprintf("worker %d searching", workerID),
		})

		result := wp.checker.Check(task.Reference)

		wp.mu.Lock()
		wp.completedTasks++
		completed := wp.completedTasks
		total := wp.totalTasks
		wp.mu.Unlock()

		wp.sendProgress(ProgressUpdate{
			TaskID:    task.ID,
			Query:     query,
			Status:    result.Status,
			Completed: completed,
			Total:     total,
			Message:   fmt.Sprintf("worker %d finished in %v", workerID, time.Since(start).Round(time.Millisecond)),
		})

		wp.results <- LookupResult{
			Task:    task,
			Result:  result,
			Elapsed: time.Since(start),
		}
	}
}

// sendProgress delivers an update unless the channel is full; updates are
// advisory and must never block a worker.
func (wp *WorkerPool) sendProgress(update ProgressUpdate) {
	select {
	case wp.progressChan <- update:
	default:
	}
}

// Submit queues one task.
func (wp *WorkerPool) Submit(task LookupTask) {
	wp.mu.Lock()
	wp.totalTasks++
	wp.mu.Unlock()

	wp.tasks <- task
}

// SubmitBatch queues tasks for all references.
func (wp *WorkerPool) SubmitBatch(references []refs.Reference) {
	for i, ref := range references {
		wp.Submit(LookupTask{
			ID:        fmt.Sprintf("lookup-%d", i),
			Reference: ref,
		})
	}
}

// Results returns the results channel.
func (wp *WorkerPool) Results() <-chan LookupResult {
	return wp.results
}

// Progress returns the progress channel.
func (wp *WorkerPool) Progress() <-chan ProgressUpdate {
	return wp.progressChan
}

// Wait closes the task queue, waits for the workers to drain it, and closes
// the output channels.
func (wp *WorkerPool) Wait() {
	close(wp.tasks)
	wp.wg.Wait()
	close(wp.results)
	close(wp.progressChan)
}
