package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gamedict/internal/models"
)

// ErrQueueFull is returned by Submit when the pool cannot accept more events
var ErrQueueFull = errors.New("worker pool queue full (backpressure)")

// EventSink persists vote events
type EventSink interface {
	InsertVoteEvent(ctx context.Context, event *models.VoteEvent) error
}

// WorkerPool appends vote events to the audit log off the request path
type WorkerPool struct {
	jobs        chan models.VoteEvent
	workerCount int
	sink        EventSink
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	metrics     *PoolMetrics
	submitMu    sync.RWMutex
	stopped     bool
}

// PoolMetrics tracks worker pool performance
type PoolMetrics struct {
	mu              sync.RWMutex
	processed       int64
	failed          int64
	backpressure    int64
	totalProcessing time.Duration
}

// Metrics is a point-in-time copy of PoolMetrics
type Metrics struct {
	Processed     int64  `json:"processed"`
	Failed        int64  `json:"failed"`
	Backpressure  int64  `json:"backpressure_events"`
	AvgProcessing string `json:"avg_processing_time"`
	Queue         string `json:"queue_utilization"`
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workerCount, queueSize int, sink EventSink) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		jobs:        make(chan models.VoteEvent, queueSize),
		workerCount: workerCount,
		sink:        sink,
		ctx:         ctx,
		cancel:      cancel,
		metrics:     &PoolMetrics{},
	}
}

// Start launches the worker goroutines
func (wp *WorkerPool) Start() {
	log.Printf("🚀 Starting vote event pool with %d workers and queue size %d", wp.workerCount, cap(wp.jobs))

	for i := 1; i <= wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.ctx.Done():
			return

		case event, ok := <-wp.jobs:
			if !ok {
				return
			}
			wp.processEvent(id, event)
		}
	}
}

// processEvent writes one event, recovering from panics so the worker survives
func (wp *WorkerPool) processEvent(workerID int, event models.VoteEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️  Worker #%d PANIC recovered: %v (term: %d)", workerID, r, event.TermID)
			wp.metrics.incrementFailed()
		}
	}()

	startTime := time.Now()

	ctx, cancel := context.WithTimeout(wp.ctx, 5*time.Second)
	defer cancel()

	err := wp.sink.InsertVoteEvent(ctx, &event)

	processingTime := time.Since(startTime)

	if err != nil {
		log.Printf("❌ Worker #%d failed to record vote event on term %d by user %d: %v (took %v)",
			workerID, event.TermID, event.VoterID, err, processingTime)
		wp.metrics.incrementFailed()
		return
	}

	wp.metrics.recordSuccess(processingTime)
}

// Submit queues an event without blocking. A full queue drops the event.
func (wp *WorkerPool) Submit(event models.VoteEvent) error {
	wp.submitMu.RLock()
	defer wp.submitMu.RUnlock()
	if wp.stopped {
		return fmt.Errorf("worker pool is shut down")
	}

	select {
	case wp.jobs <- event:
		return nil

	default:
		log.Printf("⚠️  BACKPRESSURE WARNING: Queue full, dropping vote event for term %d", event.TermID)
		wp.metrics.incrementBackpressure()
		return ErrQueueFull
	}
}

// Shutdown stops accepting events and waits for queued ones to be written
func (wp *WorkerPool) Shutdown(timeout time.Duration) error {
	log.Printf("🛑 Shutting down vote event pool...")

	wp.submitMu.Lock()
	if !wp.stopped {
		wp.stopped = true
		close(wp.jobs)
	}
	wp.submitMu.Unlock()

	done := make(chan struct{})

	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Printf("✓ All workers finished processing remaining events")
		wp.printMetrics()
		return nil

	case <-time.After(timeout):
		wp.cancel()
		log.Printf("⚠️  Worker pool shutdown timed out after %v", timeout)
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

// GetMetrics returns a snapshot of the pool metrics
func (wp *WorkerPool) GetMetrics() Metrics {
	wp.metrics.mu.RLock()
	defer wp.metrics.mu.RUnlock()

	avgProcessing := time.Duration(0)
	if wp.metrics.processed > 0 {
		avgProcessing = wp.metrics.totalProcessing / time.Duration(wp.metrics.processed)
	}

	return Metrics{
		Processed:     wp.metrics.processed,
		Failed:        wp.metrics.failed,
		Backpressure:  wp.metrics.backpressure,
		AvgProcessing: avgProcessing.String(),
		Queue:         fmt.Sprintf("%d/%d", len(wp.jobs), cap(wp.jobs)),
	}
}

func (wp *WorkerPool) printMetrics() {
	m := wp.GetMetrics()
	log.Printf("📊 Vote Event Pool Metrics:")
	log.Printf("   - Processed: %d", m.Processed)
	log.Printf("   - Failed: %d", m.Failed)
	log.Printf("   - Backpressure Events: %d", m.Backpressure)
	log.Printf("   - Avg Processing Time: %s", m.AvgProcessing)
}

// Metrics helper methods
func (pm *PoolMetrics) recordSuccess(duration time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.processed++
	pm.totalProcessing += duration
}

func (pm *PoolMetrics) incrementFailed() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.failed++
}

func (pm *PoolMetrics) incrementBackpressure() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.backpressure++
}
