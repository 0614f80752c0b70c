package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/mamakokoro/kokoro/internal/observability/metrics"
	"github.com/mamakokoro/kokoro/internal/triage"
	"github.com/mamakokoro/kokoro/pkg/logging"
)

// ExchangeStore is the Memory Provider surface the archiver needs.
type ExchangeStore interface {
	StoreConversation(ctx context.Context, userID, userMessage, response string, level triage.RiskLevel) error
}

// ArchiveJob is one completed (or cancelled-partial) exchange to persist.
type ArchiveJob struct {
	UserID    string
	Message   string
	Response  string
	RiskLevel triage.RiskLevel
}

// Archiver persists exchanges to the Memory Provider off the request path.
// Enqueue never blocks the caller: the response stream must not wait on a
// slow or failing storage call. Failures are logged, never surfaced.
type Archiver struct {
	store   ExchangeStore
	jobs    chan ArchiveJob
	metrics *metrics.ChatMetrics
	logger  *logging.Logger
	timeout time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewArchiver creates an archiver with the given queue capacity and worker
// count and starts its workers.
func NewArchiver(store ExchangeStore, buffer, workers int, m *metrics.ChatMetrics, logger *logging.Logger) *Archiver {
	if buffer <= 0 {
		buffer = 128
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = logging.Default()
	}
	a := &Archiver{
		store:   store,
		jobs:    make(chan ArchiveJob, buffer),
		metrics: m,
		logger:  logger,
		timeout: 15 * time.Second,
	}
	for i := 0; i < workers; i++ {
		a.wg.Add(1)
		go a.worker()
	}
	return a
}

// Enqueue hands an exchange to the archive workers without waiting. When the
// queue is full the job is dropped with a log line; losing a memory is better
// than stalling a response.
func (a *Archiver) Enqueue(job ArchiveJob) {
	select {
	case a.jobs <- job:
	default:
		a.metrics.ObserveArchive("dropped")
		a.logger.Warn("archive queue full, dropping exchange", "user_id", job.UserID)
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (a *Archiver) Stop() {
	a.stopOnce.Do(func() {
		close(a.jobs)
	})
	a.wg.Wait()
}

func (a *Archiver) worker() {
	defer a.wg.Done()
	for job := range a.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.store.StoreConversation(ctx, job.UserID, job.Message, job.Response, job.RiskLevel)
		cancel()
		if err != nil {
			a.metrics.ObserveArchive("failed")
			a.logger.Warn("conversation archival skipped", "error", err, "user_id", job.UserID)
			continue
		}
		a.metrics.ObserveArchive("ok")
	}
}
