// Package pipeline implements the staged analysis runner and the simulated
// training jobs behind /predictions/run and /training. Stages model the
// product's processing flow; the numeric outputs are placeholder fixtures,
// not a predictive model.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/rockwatchstack/rockwatch/internal/models"
)

// StageStatus tracks a stage through the run.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageRunning   StageStatus = "running"
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
)

// progressStep is the fixed increment applied per delay tick.
const progressStep = 10

// StageSpec describes one stage of the run.
type StageSpec struct {
	ID        string
	Label     string
	StepDelay time.Duration
}

// StageState is an observable snapshot of one stage.
type StageState struct {
	ID       string      `json:"id"`
	Label    string      `json:"label"`
	Status   StageStatus `json:"status"`
	Progress int         `json:"progress"`
	Error    string      `json:"error,omitempty"`
}

// DefaultPredictionStages mirror the product's analysis flow.
func DefaultPredictionStages() []StageSpec {
	return []StageSpec{
		{ID: "ingest", Label: "Collecting sensor windows", StepDelay: 120 * time.Millisecond},
		{ID: "features", Label: "Extracting geotechnical features", StepDelay: 160 * time.Millisecond},
		{ID: "fusion", Label: "Running fusion model", StepDelay: 200 * time.Millisecond},
		{ID: "assessment", Label: "Scoring rockfall risk", StepDelay: 120 * time.Millisecond},
	}
}

// Runner executes stages strictly in order, advancing each stage's progress
// from 0 to 100 in fixed increments with the stage's delay per increment.
// Cancellation is checked between increments and between stages; a cancelled
// stage is marked failed and later stages stay pending.
type Runner struct {
	mu     sync.Mutex
	logger *slog.Logger
	specs  []StageSpec
	states []StageState
	rng    *rand.Rand
}

// NewRunner constructs a runner over the given stages.
func NewRunner(logger *slog.Logger, specs []StageSpec) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if len(specs) == 0 {
		specs = DefaultPredictionStages()
	}
	states := make([]StageState, len(specs))
	for i, spec := range specs {
		states[i] = StageState{ID: spec.ID, Label: spec.Label, Status: StagePending}
	}
	return &Runner{
		logger: logger,
		specs:  specs,
		states: states,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run executes all stages and synthesizes the placeholder result.
func (r *Runner) Run(ctx context.Context, siteID string) (models.Prediction, error) {
	for i, spec := range r.specs {
		if err := ctx.Err(); err != nil {
			r.failStage(i, err)
			return models.Prediction{}, fmt.Errorf("stage %s: %w", spec.ID, err)
		}
		r.setStage(i, StageRunning, 0)
		r.logger.Debug("stage started", slog.String("stage", spec.ID))

		for progress := progressStep; progress <= 100; progress += progressStep {
			select {
			case <-ctx.Done():
				r.failStage(i, ctx.Err())
				return models.Prediction{}, fmt.Errorf("stage %s: %w", spec.ID, ctx.Err())
			case <-time.After(spec.StepDelay):
				r.setStage(i, StageRunning, progress)
			}
		}
		r.setStage(i, StageCompleted, 100)
	}

	return r.synthesize(siteID), nil
}

// Stages returns a snapshot of all stage states.
func (r *Runner) Stages() []StageState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StageState(nil), r.states...)
}

func (r *Runner) setStage(i int, status StageStatus, progress int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[i].Status = status
	r.states[i].Progress = progress
}

func (r *Runner) failStage(i int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[i].Status = StageFailed
	if err != nil {
		r.states[i].Error = err.Error()
	}
}

// synthesize fabricates the result object. Values are pseudo-random with no
// statistical basis; treat this as a test fixture generator.
func (r *Runner) synthesize(siteID string) models.Prediction {
	r.mu.Lock()
	probability := 0.05 + r.rng.Float64()*0.9
	confidence := 0.6 + r.rng.Float64()*0.35
	volume := 20 + r.rng.Float64()*480
	lead := 6 + r.rng.Float64()*66
	r.mu.Unlock()

	return models.Prediction{
		SiteID:       siteID,
		Timestamp:    time.Now().UTC(),
		RiskLevel:    riskFromProbability(probability),
		Probability:  round2(probability),
		Confidence:   round2(confidence),
		VolumeM3:     round2(volume),
		LeadTimeHrs:  round2(lead),
		ModelVersion: "fusion-sim",
	}
}

func riskFromProbability(p float64) models.RiskLevel {
	switch {
	case p >= 0.85:
		return models.RiskCritical
	case p >= 0.6:
		return models.RiskHigh
	case p >= 0.3:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
