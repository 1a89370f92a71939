package services

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"go.uber.org/zap"

	"github.com/Lllllllleong/bookingworkflow/internal/config"
	"github.com/Lllllllleong/bookingworkflow/internal/gateway"
	"github.com/Lllllllleong/bookingworkflow/internal/gcp"
	"github.com/Lllllllleong/bookingworkflow/internal/logging"
	"github.com/Lllllllleong/bookingworkflow/internal/models"
	"github.com/Lllllllleong/bookingworkflow/internal/workflow"
)

// runtime holds the clients shared by both function entry points.
type runtime struct {
	config       *config.Config
	logger       *zap.Logger
	orchestrator *workflow.Orchestrator
	records      *gcp.RecordStore
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format).With(
		zap.String("projectId", cfg.App.ProjectID),
		zap.String("environment", cfg.App.Environment),
	)

	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.App.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}

	var handoff workflow.HandoffTrigger
	if cfg.Handoff.WorkflowID != "" {
		executionsClient, err := executions.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
		}
		handoff = gcp.NewWorkflowTrigger(executionsClient, cfg.App.ProjectID, cfg.Handoff.Location, cfg.Handoff.WorkflowID, logger)
	}

	records := gcp.NewRecordStore(firestoreClient, cfg.Firestore.Collection)
	reports := gcp.NewReportStore(storageClient, cfg.Storage.ReportsBucket, logger)
	persister := workflow.NewResultPersister(reports, records, handoff, cfg.Storage.ReportsPrefix, logger)

	completer := gateway.NewClient(gateway.Config{
		BaseURL:         cfg.Completion.BaseURL,
		APIKey:          cfg.Completion.APIKey,
		Model:           cfg.Completion.Model,
		ReasoningEffort: cfg.Completion.ReasoningEffort,
		Timeout:         cfg.Completion.Timeout,
	}, logger)

	logger.Info("Workflow runtime initialized.",
		zap.String("model", cfg.Completion.Model),
		zap.String("reportsBucket", cfg.Storage.ReportsBucket),
		zap.Bool("handoff", handoff != nil),
	)
	return &runtime{
		config:       cfg,
		logger:       logger,
		orchestrator: workflow.NewOrchestrator(completer, persister, toolSets(cfg.ToolBroker), logger),
		records:      records,
	}, nil
}

// toolSets declares the same tool-broker server for both phases with each
// phase's own allow-list.
func toolSets(cfg config.ToolBrokerConfig) workflow.Tools {
	base := models.ToolSet{
		ServerLabel: cfg.ServerLabel,
		ServerURL:   cfg.ServerURL,
		BearerToken: cfg.Token,
	}
	phaseOne, phaseTwo := base, base
	phaseOne.AllowedActions = append([]string(nil), cfg.PhaseOneTools...)
	phaseTwo.AllowedActions = append([]string(nil), cfg.PhaseTwoTools...)
	return workflow.Tools{PhaseOne: phaseOne, PhaseTwo: phaseTwo}
}
