package workflow

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/Lllllllleong/bookingworkflow/internal/metrics"
	"github.com/Lllllllleong/bookingworkflow/internal/models"
)

const reportContentType = "text/markdown; charset=utf-8"

const skippedNoRecordID = "skipped: no record id"

// BlobStore saves a report and returns its locator.
type BlobStore interface {
	Save(ctx context.Context, path string, content []byte, contentType string, metadata map[string]string) (string, error)
}

// DocumentStore merges fields into the record stored under key without
// touching fields it does not name.
type DocumentStore interface {
	Merge(ctx context.Context, key string, fields map[string]interface{}) error
}

// HandoffTrigger starts downstream processing of a confirmed booking.
type HandoffTrigger interface {
	Trigger(ctx context.Context, payload map[string]interface{}) error
}

// PersistMeta carries run context written alongside the report.
type PersistMeta struct {
	RunID  string
	Fields map[string]string
}

// ResultPersister writes the dossier and updates the booking record. Each
// side effect is attempted and recorded on its own; none of them can fail
// the run.
type ResultPersister struct {
	blobs   BlobStore
	docs    DocumentStore
	handoff HandoffTrigger
	prefix  string
	logger  *zap.Logger
}

// NewResultPersister builds a persister. handoff may be nil.
func NewResultPersister(blobs BlobStore, docs DocumentStore, handoff HandoffTrigger, prefix string, logger *zap.Logger) *ResultPersister {
	return &ResultPersister{
		blobs:   blobs,
		docs:    docs,
		handoff: handoff,
		prefix:  strings.Trim(prefix, "/"),
		logger:  logger.With(zap.String("component", "persister")),
	}
}

// Persist records the phase-two text and the extracted URLs for recordID.
func (p *ResultPersister) Persist(ctx context.Context, recordID, phaseTwoText string, urls map[string]string, meta PersistMeta) models.PersistenceOutcome {
	outcome := models.NewPersistenceOutcome()
	log := p.logger.With(zap.String("recordId", recordID), zap.String("runId", meta.RunID))

	if strings.TrimSpace(recordID) == "" {
		outcome.Blob.Reason = skippedNoRecordID
		outcome.Document.Reason = skippedNoRecordID
		outcome.Handoff.Reason = skippedNoRecordID
		log.Warn("No record id on inbound event; skipping persistence.")
		return outcome
	}

	var failures []string

	path := p.reportPath(recordID, meta.RunID)
	locator, err := p.blobs.Save(ctx, path, []byte(phaseTwoText), reportContentType, map[string]string{
		"runId":    meta.RunID,
		"recordId": recordID,
	})
	if err != nil {
		perr := &PersistenceError{Target: "blob", Err: err}
		outcome.Blob = models.SideEffect{Status: models.StatusFailed, Reason: perr.Error()}
		failures = append(failures, perr.Error())
		log.Error("Failed to save report", zap.String("path", path), zap.Error(err))
	} else {
		outcome.Blob = models.SideEffect{Status: models.StatusSucceeded}
		outcome.Storage = &locator
		log.Info("Saved report.", zap.String("storage", locator))
	}
	metrics.PersistenceResults.WithLabelValues("blob", string(outcome.Blob.Status)).Inc()

	fields := p.recordFields(urls, meta, outcome.Storage, path)
	if err := p.docs.Merge(ctx, recordID, fields); err != nil {
		perr := &PersistenceError{Target: "document", Err: err}
		outcome.Document = models.DocumentOutcome{SideEffect: models.SideEffect{Status: models.StatusFailed, Reason: perr.Error()}}
		failures = append(failures, perr.Error())
		log.Error("Failed to merge booking record", zap.Error(err))
	} else {
		outcome.Document = models.DocumentOutcome{Merge: true, SideEffect: models.SideEffect{Status: models.StatusSucceeded}}
		log.Info("Merged booking record.", zap.Int("urlCount", len(urls)))
	}
	metrics.PersistenceResults.WithLabelValues("document", string(outcome.Document.Status)).Inc()

	if p.handoff != nil {
		payload := map[string]interface{}{
			"recordId": recordID,
			"runId":    meta.RunID,
		}
		if outcome.Storage != nil {
			payload["reportUri"] = *outcome.Storage
		}
		if err := p.handoff.Trigger(ctx, payload); err != nil {
			perr := &PersistenceError{Target: "handoff", Err: err}
			outcome.Handoff = models.SideEffect{Status: models.StatusFailed, Reason: perr.Error()}
			failures = append(failures, perr.Error())
			log.Error("Failed to trigger downstream workflow", zap.Error(err))
		} else {
			outcome.Handoff = models.SideEffect{Status: models.StatusSucceeded}
		}
		metrics.PersistenceResults.WithLabelValues("handoff", string(outcome.Handoff.Status)).Inc()
	} else {
		outcome.Handoff.Reason = "handoff not configured"
	}

	if len(failures) > 0 {
		msg := strings.Join(failures, "; ")
		outcome.Error = &msg
	}
	return outcome
}

func (p *ResultPersister) recordFields(urls map[string]string, meta PersistMeta, storage *string, path string) map[string]interface{} {
	confirmation := map[string]interface{}{
		"status": models.MappingStatusConfirmed,
		"runId":  meta.RunID,
		"urls":   copyStrings(urls),
	}
	if rowID := meta.Fields[KeyRowID]; rowID != "" {
		confirmation["rowId"] = rowID
	}
	if companyURL := meta.Fields[KeyCompanyURL]; companyURL != "" {
		confirmation["companyUrl"] = companyURL
	}
	if storage != nil {
		confirmation["reportUri"] = *storage
		confirmation["reportPath"] = path
	}
	return map[string]interface{}{
		models.RecordFieldMappingConfirmation: confirmation,
	}
}

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func (p *ResultPersister) reportPath(recordID, runID string) string {
	name := runID
	if name == "" {
		name = "report"
	}
	key := unsafePathChars.ReplaceAllString(recordID, "_")
	if p.prefix == "" {
		return fmt.Sprintf("%s/%s.md", key, name)
	}
	return fmt.Sprintf("%s/%s/%s.md", p.prefix, key, name)
}

func copyStrings(in map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
