package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

// ReportStore writes dossier reports to a GCS bucket.
type ReportStore struct {
	bucketName string
	bucket     *storage.BucketHandle
	logger     *zap.Logger
}

// NewReportStore returns a store writing to bucketName through client.
func NewReportStore(client *storage.Client, bucketName string, logger *zap.Logger) *ReportStore {
	return &ReportStore{
		bucketName: bucketName,
		bucket:     client.Bucket(bucketName),
		logger:     logger.With(zap.String("bucket", bucketName)),
	}
}

// Save writes content to objectName only if it doesn't already exist and
// returns the gs:// URI of the object. An existing object is not an error:
// report paths carry the run id, so a collision is a replay of the same run.
func (s *ReportStore) Save(ctx context.Context, objectName string, content []byte, contentType string, metadata map[string]string) (string, error) {
	uri := fmt.Sprintf("gs://%s/%s", s.bucketName, objectName)

	writer := s.bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType
	writer.Metadata = metadata

	if _, err := writer.Write(content); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			s.logger.Info("Report already exists; skipping write.", zap.String("object", objectName))
			return uri, nil
		}
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			s.logger.Info("Report already exists; skipping write.", zap.String("object", objectName))
			return uri, nil
		}
		return "", fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return uri, nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
