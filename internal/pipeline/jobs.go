package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rockwatchstack/rockwatch/internal/metrics"
)

// JobStatus tracks a training job's lifecycle.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// TrainingConfig is the caller-supplied model configuration.
type TrainingConfig struct {
	ModelName     string  `json:"model_name" validate:"required"`
	Epochs        int     `json:"epochs" validate:"required,gte=1,lte=500"`
	LearningRate  float64 `json:"learning_rate" validate:"gt=0,lte=1"`
	TemporalModel string  `json:"temporal_model"`
	SpatialModel  string  `json:"spatial_model"`
	FusionModel   string  `json:"fusion_model"`
}

// EpochMetrics is one epoch's simulated training numbers.
type EpochMetrics struct {
	Epoch     int     `json:"epoch"`
	TrainLoss float64 `json:"train_loss"`
	ValLoss   float64 `json:"val_loss"`
	Accuracy  float64 `json:"accuracy"`
}

// Job is an observable snapshot of one training run.
type Job struct {
	ID           string         `json:"job_id"`
	Config       TrainingConfig `json:"config"`
	Status       JobStatus      `json:"status"`
	Progress     float64        `json:"progress"`
	CurrentEpoch int            `json:"current_epoch"`
	Metrics      []EpochMetrics `json:"metrics,omitempty"`
	Logs         []string       `json:"logs,omitempty"`
	Error        string         `json:"error,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  time.Time      `json:"completed_at,omitempty"`
}

// ErrJobNotFound signals a lookup for an unknown job.
var ErrJobNotFound = fmt.Errorf("training job not found")

type jobRecord struct {
	job    Job
	cancel context.CancelFunc
}

// JobManager runs simulated training jobs in the background and keeps their
// state observable until shutdown.
type JobManager struct {
	mu         sync.Mutex
	logger     *slog.Logger
	jobs       map[string]*jobRecord
	order      []string
	epochDelay time.Duration
	rng        *rand.Rand
	wg         sync.WaitGroup
}

// NewJobManager constructs a manager. epochDelay is the fixed per-epoch
// delay; it stands in for real training time.
func NewJobManager(logger *slog.Logger, epochDelay time.Duration) *JobManager {
	if logger == nil {
		logger = slog.Default()
	}
	if epochDelay <= 0 {
		epochDelay = 500 * time.Millisecond
	}
	return &JobManager{
		logger:     logger,
		jobs:       make(map[string]*jobRecord),
		epochDelay: epochDelay,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start registers a job and launches its background run.
func (m *JobManager) Start(cfg TrainingConfig) (Job, error) {
	if cfg.Epochs <= 0 {
		return Job{}, fmt.Errorf("epochs must be positive")
	}

	ctx, cancel := context.WithCancel(context.Background())
	rec := &jobRecord{
		job: Job{
			ID:        uuid.NewString(),
			Config:    cfg,
			Status:    JobPending,
			StartedAt: time.Now().UTC(),
			Logs:      []string{"Initializing multi-modal training pipeline"},
		},
		cancel: cancel,
	}

	m.mu.Lock()
	m.jobs[rec.job.ID] = rec
	m.order = append(m.order, rec.job.ID)
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(ctx, rec.job.ID)

	return m.snapshot(rec.job.ID)
}

// Status returns a snapshot of one job.
func (m *JobManager) Status(id string) (Job, error) { return m.snapshot(id) }

// Jobs lists all known jobs in start order.
func (m *JobManager) Jobs() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Job, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, cloneJob(m.jobs[id].job))
	}
	return out
}

// Cancel requests cancellation of a running job. Cancelling a finished job
// is a no-op.
func (m *JobManager) Cancel(id string) (Job, error) {
	m.mu.Lock()
	rec, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return Job{}, fmt.Errorf("job %s: %w", id, ErrJobNotFound)
	}
	rec.cancel()
	m.mu.Unlock()
	return m.snapshot(id)
}

// Shutdown cancels every job and waits for their goroutines to drain.
func (m *JobManager) Shutdown() {
	m.mu.Lock()
	for _, rec := range m.jobs {
		rec.cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *JobManager) run(ctx context.Context, id string) {
	defer m.wg.Done()
	started := time.Now()

	m.update(id, func(j *Job) {
		j.Status = JobRunning
		j.Logs = append(j.Logs, "Starting multi-modal training")
	})

	cfg, _ := m.snapshot(id)
	total := cfg.Config.Epochs

	for epoch := 1; epoch <= total; epoch++ {
		select {
		case <-ctx.Done():
			m.update(id, func(j *Job) {
				j.Status = JobCancelled
				j.CompletedAt = time.Now().UTC()
				j.Logs = append(j.Logs, fmt.Sprintf("Training cancelled at epoch %d", epoch))
			})
			metrics.ObservePipelineRun("training", metrics.OutcomeCancelled, time.Since(started))
			return
		case <-time.After(m.epochDelay):
		}

		em := m.simulateEpoch(epoch)
		progress := float64(epoch) / float64(total) * 100
		m.update(id, func(j *Job) {
			j.CurrentEpoch = epoch
			j.Progress = progress
			j.Metrics = append(j.Metrics, em)
			j.Logs = append(j.Logs, fmt.Sprintf("Epoch %d/%d - loss %.4f, accuracy %.3f", epoch, total, em.TrainLoss, em.Accuracy))
		})
	}

	m.update(id, func(j *Job) {
		j.Status = JobCompleted
		j.Progress = 100
		j.CompletedAt = time.Now().UTC()
		j.Logs = append(j.Logs, "Multi-modal training completed")
	})
	metrics.ObservePipelineRun("training", metrics.OutcomeSuccess, time.Since(started))
	m.logger.Info("training job completed", slog.String("job", id))
}

// simulateEpoch fabricates plausible-looking loss/accuracy curves; the decay
// shape matters for the UI, the numbers do not.
func (m *JobManager) simulateEpoch(epoch int) EpochMetrics {
	m.mu.Lock()
	noise := m.rng.NormFloat64()
	jitter := m.rng.Float64()
	m.mu.Unlock()

	baseLoss := 2.5 * math.Exp(-float64(epoch)*0.05)
	trainLoss := math.Max(0.001, baseLoss+noise*0.1)
	accuracy := math.Min(0.99, math.Max(0.1, 1-math.Exp(-float64(epoch)*0.1)*(0.5+jitter*0.3)))

	return EpochMetrics{
		Epoch:     epoch,
		TrainLoss: trainLoss,
		ValLoss:   math.Max(0.001, trainLoss+noise*0.05),
		Accuracy:  accuracy,
	}
}

func (m *JobManager) snapshot(id string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("job %s: %w", id, ErrJobNotFound)
	}
	return cloneJob(rec.job), nil
}

func (m *JobManager) update(id string, fn func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[id]
	if !ok {
		return
	}
	// Terminal states are never overwritten (a cancel can race completion).
	switch rec.job.Status {
	case JobCompleted, JobFailed, JobCancelled:
		return
	}
	fn(&rec.job)
}

func cloneJob(j Job) Job {
	j.Metrics = append([]EpochMetrics(nil), j.Metrics...)
	j.Logs = append([]string(nil), j.Logs...)
	return j
}
