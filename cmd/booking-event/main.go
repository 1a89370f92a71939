package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/bookingworkflow/internal/services"
)

var (
	bookingInstance *services.BookingEventFunction
	once            sync.Once
	initErr         error
)

func init() {
	functions.CloudEvent("HandleBookingEvent", handleBookingEvent)
}

// main is required by the Go Functions Framework.
func main() {}

// handleBookingEvent receives Pub/Sub booking messages as CloudEvents.
func handleBookingEvent(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		bookingInstance, initErr = services.NewBookingEvent(context.Background())
	})
	if initErr != nil {
		log.Printf("CRITICAL: booking-event initialization failed: %v", initErr)
		return initErr
	}

	var msg services.PubSubMessage
	if err := json.Unmarshal(e.Data(), &msg); err != nil {
		log.Printf("ERROR: could not unmarshal event %s: %v", e.ID(), err)
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	return bookingInstance.Process(ctx, msg)
}
