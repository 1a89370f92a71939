package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"go.uber.org/zap"
)

// WorkflowTrigger starts a Cloud Workflows execution for a confirmed booking.
type WorkflowTrigger struct {
	client *executions.Client
	parent string
	logger *zap.Logger
}

func NewWorkflowTrigger(client *executions.Client, projectID, location, workflowID string, logger *zap.Logger) *WorkflowTrigger {
	return &WorkflowTrigger{
		client: client,
		parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID),
		logger: logger.With(zap.String("workflow", workflowID)),
	}
}

// Trigger creates one execution with payload as its argument.
func (t *WorkflowTrigger) Trigger(ctx context.Context, payload map[string]interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: t.parent,
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	execution, err := t.client.CreateExecution(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	t.logger.Info("Triggered downstream workflow.", zap.String("execution", execution.GetName()))
	return nil
}
