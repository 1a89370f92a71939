package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Lllllllleong/bookingworkflow/internal/gcp"
	"github.com/Lllllllleong/bookingworkflow/internal/models"
	"github.com/Lllllllleong/bookingworkflow/internal/workflow"
)

// PubSubMessage is the data of a Pub/Sub CloudEvent. Data arrives base64
// encoded and is decoded by encoding/json into the byte slice.
type PubSubMessage struct {
	Message struct {
		Data       []byte            `json:"data"`
		Attributes map[string]string `json:"attributes,omitempty"`
		ID         string            `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type workflowRunner interface {
	Run(ctx context.Context, event models.InboundEvent) (*models.WorkflowResult, error)
}

type recordLoader interface {
	Get(ctx context.Context, id string) (*models.BookingRecord, error)
}

// BookingEventFunction runs the workflow for bookings published on Pub/Sub.
type BookingEventFunction struct {
	runner  workflowRunner
	records recordLoader
	logger  *zap.Logger
}

// NewBookingEvent builds the function from configuration.
func NewBookingEvent(ctx context.Context) (*BookingEventFunction, error) {
	rt, err := newRuntime(ctx)
	if err != nil {
		return nil, err
	}
	return newBookingEvent(rt.orchestrator, rt.records, rt.logger), nil
}

func newBookingEvent(runner workflowRunner, records recordLoader, logger *zap.Logger) *BookingEventFunction {
	return &BookingEventFunction{
		runner:  runner,
		records: records,
		logger:  logger.With(zap.String("component", "booking-event")),
	}
}

// Process runs one booking message. It returns nil for messages that can
// never succeed so Pub/Sub does not redeliver them.
func (f *BookingEventFunction) Process(ctx context.Context, msg PubSubMessage) error {
	log := f.logger.With(zap.String("messageId", msg.Message.ID))

	event, err := decodeBookingEvent(msg.Message.Data)
	if err != nil {
		log.Error("Dropping undecodable booking message", zap.Error(err))
		return nil
	}

	if recordID, ok := referenceOnly(event); ok {
		log = log.With(zap.String("recordId", recordID))
		record, err := f.records.Get(ctx, recordID)
		if errors.Is(err, gcp.ErrRecordNotFound) {
			log.Error("Dropping booking message for unknown record", zap.Error(err))
			return nil
		}
		if err != nil {
			log.Error("Failed to load booking record", zap.Error(err))
			return err
		}
		event = record.ToInboundEvent(recordID)
	}

	result, err := f.runner.Run(ctx, event)
	if err != nil {
		var validationErr *workflow.ValidationFailedError
		if errors.As(err, &validationErr) {
			log.Warn("Dropping invalid booking", zap.Any("errors", validationErr.Errors))
			return nil
		}
		return fmt.Errorf("booking workflow failed: %w", err)
	}

	log.Info("Booking processed.",
		zap.String("runId", result.RunID),
		zap.Bool("persistenceFailed", result.PersistenceOutcome.Failed()),
	)
	return nil
}

func decodeBookingEvent(data []byte) (models.InboundEvent, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty message data")
	}
	var event models.InboundEvent
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&event); err != nil {
		return nil, fmt.Errorf("decode booking event: %w", err)
	}
	if event == nil {
		return nil, errors.New("message data is not a JSON object")
	}
	return event, nil
}

// referenceOnly reports whether event carries nothing but a record id.
func referenceOnly(event models.InboundEvent) (string, bool) {
	if len(event) != 1 {
		return "", false
	}
	recordID, ok := event[models.FieldRecordID].(string)
	recordID = strings.TrimSpace(recordID)
	return recordID, ok && recordID != ""
}
