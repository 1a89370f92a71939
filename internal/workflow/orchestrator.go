package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Lllllllleong/bookingworkflow/internal/metrics"
	"github.com/Lllllllleong/bookingworkflow/internal/models"
)

// State is a step of the mapping-confirmation pipeline. The pipeline is a
// straight line with one gate and never revisits a state.
type State string

const (
	StateValidating       State = "validating"
	StatePhase1Building   State = "phase1_building"
	StatePhase1Calling    State = "phase1_calling"
	StatePhase1Resolving  State = "phase1_resolving"
	StatePhase1Extracting State = "phase1_extracting"
	StatePhase2Gate       State = "phase2_gate"
	StatePhase2Building   State = "phase2_building"
	StatePhase2Calling    State = "phase2_calling"
	StatePhase2Resolving  State = "phase2_resolving"
	StatePersisting       State = "persisting"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Completer is the completion-service gateway as the orchestrator uses it.
type Completer interface {
	Complete(ctx context.Context, req models.CompletionRequest) (models.RawResponse, error)
}

// Persister records a completed run.
type Persister interface {
	Persist(ctx context.Context, recordID, phaseTwoText string, urls map[string]string, meta PersistMeta) models.PersistenceOutcome
}

// Tools holds the tool-broker declaration used in each phase.
type Tools struct {
	PhaseOne models.ToolSet
	PhaseTwo models.ToolSet
}

// Orchestrator runs the two-phase mapping-confirmation workflow.
type Orchestrator struct {
	completer Completer
	persister Persister
	tools     Tools
	estimate  func(float64) float64
	newRunID  func() string
	tracer    trace.Tracer
	logger    *zap.Logger
}

type Option func(*Orchestrator)

// WithEstimator replaces the duration estimator.
func WithEstimator(fn func(float64) float64) Option {
	return func(o *Orchestrator) { o.estimate = fn }
}

// WithRunIDs replaces the run id generator.
func WithRunIDs(fn func() string) Option {
	return func(o *Orchestrator) { o.newRunID = fn }
}

func NewOrchestrator(completer Completer, persister Persister, tools Tools, logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		completer: completer,
		persister: persister,
		tools:     tools,
		estimate:  EstimateDuration,
		newRunID:  uuid.NewString,
		tracer:    otel.Tracer("github.com/Lllllllleong/bookingworkflow/internal/workflow"),
		logger:    logger.With(zap.String("component", "orchestrator")),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run tracks the progress of one invocation.
type run struct {
	id        string
	state     State
	completed []State
	logger    *zap.Logger
}

func (r *run) enter(next State) {
	if r.state != "" {
		r.completed = append(r.completed, r.state)
	}
	r.state = next
	r.logger.Debug("state transition", zap.String("state", string(next)))
}

func (r *run) fail(err error) *RunError {
	return &RunError{
		RunID:           r.id,
		State:           r.state,
		CompletedStates: append([]State(nil), r.completed...),
		Err:             err,
	}
}

// Run executes the pipeline for one inbound event. On failure the returned
// error is a *RunError; persistence problems never produce an error.
func (o *Orchestrator) Run(ctx context.Context, event models.InboundEvent) (result *models.WorkflowResult, err error) {
	r := &run{id: o.newRunID()}
	recordID, _ := event[models.FieldRecordID].(string)
	r.logger = o.logger.With(zap.String("runId", r.id), zap.String("recordId", recordID))

	ctx, span := o.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("workflow.run_id", r.id),
		attribute.String("workflow.record_id", recordID),
	))
	defer func() {
		outcome := string(StateDone)
		var runErr *RunError
		if errors.As(err, &runErr) {
			outcome = runErr.Kind()
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
			r.logger.Error("Workflow run failed",
				zap.String("kind", outcome),
				zap.String("state", string(runErr.State)),
				zap.Error(runErr.Err),
			)
		} else if result != nil && result.PersistenceOutcome.Failed() {
			outcome = "done_with_persistence_errors"
		}
		span.SetAttributes(attribute.String("workflow.outcome", outcome))
		span.End()
		metrics.WorkflowRuns.WithLabelValues(outcome).Inc()
	}()

	r.enter(StateValidating)
	req, err := Normalize(event)
	if err != nil {
		return nil, r.fail(err)
	}
	r.logger.Info("Starting mapping confirmation.", zap.Float64("estimatedSize", req.EstimatedSize))

	r.enter(StatePhase1Building)
	minutes, err := checkedEstimate(req.EstimatedSize, o.estimate)
	if err != nil {
		r.logger.Error("Duration estimate is not finite; this is a defect.", zap.Float64("estimatedSize", req.EstimatedSize), zap.Error(err))
		return nil, r.fail(err)
	}
	phaseOnePrompt := BuildPhaseOnePrompt(req, minutes)

	r.enter(StatePhase1Calling)
	rawOne, err := o.call(ctx, r, 1, phaseOnePrompt, o.tools.PhaseOne)
	if err != nil {
		return nil, r.fail(err)
	}

	r.enter(StatePhase1Resolving)
	resOne := Resolve(rawOne)
	if !resOne.OK() {
		return nil, r.fail(&UnresolvableResponseError{Phase: 1, Resolution: resOne})
	}

	r.enter(StatePhase1Extracting)
	fields := map[string]string{}
	blockFound := true
	switch block := ParseBlock(resOne.Text).(type) {
	case Parsed:
		fields = block.Fields
	case Unparseable:
		blockFound = block.BlockFound
		r.logger.Warn("Phase-one text has no usable sentinel block.", zap.String("reason", block.Reason))
	}

	r.enter(StatePhase2Gate)
	missing, err := PhaseOneSchema.Check(fields)
	if err != nil {
		return nil, r.fail(&InternalComputationError{Operation: "extraction schema", Detail: err.Error()})
	}
	if len(missing) > 0 {
		return nil, r.fail(&MissingExtractionError{
			SchemaVersion: PhaseOneSchema.Version,
			MissingKeys:   missing,
			FoundKeys:     sortedFieldKeys(fields),
			BlockFound:    blockFound,
		})
	}

	r.enter(StatePhase2Building)
	phaseTwoPrompt, err := BuildPhaseTwoPrompt(req, minutes, fields)
	if err != nil {
		return nil, r.fail(err)
	}

	r.enter(StatePhase2Calling)
	rawTwo, err := o.call(ctx, r, 2, phaseTwoPrompt, o.tools.PhaseTwo)
	if err != nil {
		return nil, r.fail(err)
	}

	r.enter(StatePhase2Resolving)
	resTwo := Resolve(rawTwo)
	if !resTwo.OK() {
		return nil, r.fail(&UnresolvableResponseError{Phase: 2, Resolution: resTwo})
	}

	r.enter(StatePersisting)
	urls := ExtractURLs(resTwo.Text)
	if len(urls) == 0 {
		r.logger.Warn("No labelled URLs found in phase-two text.")
	}
	outcome := o.persister.Persist(ctx, req.RecordID, resTwo.Text, urls, PersistMeta{RunID: r.id, Fields: fields})

	r.enter(StateDone)
	r.logger.Info("Mapping confirmation complete.",
		zap.Bool("persistenceFailed", outcome.Failed()),
		zap.Int("urlCount", len(urls)),
	)

	return &models.WorkflowResult{
		RunID:                    r.id,
		RecordID:                 req.RecordID,
		State:                    string(StateDone),
		EstimatedDurationMinutes: minutes,
		PhaseOne:                 models.PhaseOneResult{Text: resOne.Text, Fields: fields},
		PhaseTwo:                 models.PhaseTwoResult{Text: resTwo.Text, URLs: urls},
		PersistenceOutcome:       outcome,
	}, nil
}

// call performs one gateway call for a phase. It does not retry.
func (o *Orchestrator) call(ctx context.Context, r *run, phase int, prompt string, tools models.ToolSet) (models.RawResponse, error) {
	ctx, span := o.tracer.Start(ctx, "workflow.phase", trace.WithAttributes(
		attribute.Int("workflow.phase", phase),
		attribute.Int("workflow.allowed_tools", len(tools.AllowedActions)),
	))
	defer span.End()

	phaseLabel := "phase1"
	if phase == 2 {
		phaseLabel = "phase2"
	}
	log := r.logger.With(zap.Int("phase", phase))
	log.Info("Calling completion service.", zap.Int("promptLength", len(prompt)), zap.Strings("allowedTools", tools.AllowedActions))

	start := time.Now()
	raw, err := o.completer.Complete(ctx, models.CompletionRequest{Prompt: prompt, Tools: tools})
	elapsed := time.Since(start)
	if err != nil {
		metrics.GatewayCallDuration.WithLabelValues(phaseLabel, "error").Observe(elapsed.Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion call failed")
		return nil, &UpstreamCallError{Phase: phase, Err: err}
	}
	metrics.GatewayCallDuration.WithLabelValues(phaseLabel, "ok").Observe(elapsed.Seconds())
	log.Info("Completion service answered.", zap.Duration("elapsed", elapsed))
	return raw, nil
}
