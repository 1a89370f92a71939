package gcp

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/bookingworkflow/internal/models"
)

// ErrRecordNotFound is returned by RecordStore.Get for an unknown booking id.
var ErrRecordNotFound = errors.New("booking record not found")

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// RecordStore reads and updates booking records in one collection.
type RecordStore struct {
	client     *firestore.Client
	collection string
}

func NewRecordStore(client *firestore.Client, collection string) *RecordStore {
	return &RecordStore{client: client, collection: collection}
}

// Get loads the booking record stored under id.
func (s *RecordStore) Get(ctx context.Context, id string) (*models.BookingRecord, error) {
	snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, s.collection, id)
		}
		return nil, fmt.Errorf("failed to read booking record %s: %w", id, err)
	}
	var record models.BookingRecord
	if err := snap.DataTo(&record); err != nil {
		return nil, fmt.Errorf("failed to decode booking record %s: %w", id, err)
	}
	return &record, nil
}

// Merge replaces the top-level fields it is given on the record under id and
// leaves every other field as is. The record is created if it does not exist yet.
func (s *RecordStore) Merge(ctx context.Context, id string, fields map[string]interface{}) error {
	data := make(map[string]interface{}, len(fields)+1)
	paths := make([]firestore.FieldPath, 0, len(fields)+1)
	for k, v := range fields {
		data[k] = v
		paths = append(paths, firestore.FieldPath{k})
	}
	data["updatedAt"] = firestore.ServerTimestamp
	paths = append(paths, firestore.FieldPath{"updatedAt"})

	if _, err := s.client.Collection(s.collection).Doc(id).Set(ctx, data, firestore.Merge(paths...)); err != nil {
		return fmt.Errorf("failed to merge booking record %s: %w", id, err)
	}
	return nil
}
