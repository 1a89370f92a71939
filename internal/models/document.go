package models

import "time"

// BookingRecord is the booking document written to Firestore by the booking
// flow. The booking-event function loads it when a Pub/Sub message carries
// only a record id.
type BookingRecord struct {
	ContactName   string      `firestore:"contactName,omitempty"`
	ContactPhone  string      `firestore:"contactPhone,omitempty"`
	ContactEmail  string      `firestore:"contactEmail,omitempty"`
	CompanyName   string      `firestore:"companyName,omitempty"`
	CompanyURL    string      `firestore:"companyUrl,omitempty"`
	Address       string      `firestore:"address,omitempty"`
	Date          string      `firestore:"date,omitempty"`
	Time          string      `firestore:"time,omitempty"`
	EstimatedSize interface{} `firestore:"estimatedSize,omitempty"` // string or number, depending on the form version
	Notes         string      `firestore:"notes,omitempty"`
	CreatedAt     time.Time   `firestore:"createdAt,omitempty"`
}

// ToInboundEvent converts a stored booking into the payload shape the
// validator expects. Empty fields are left out so the validator reports them.
func (b BookingRecord) ToInboundEvent(recordID string) InboundEvent {
	event := InboundEvent{FieldRecordID: recordID}
	set := func(key, value string) {
		if value != "" {
			event[key] = value
		}
	}
	set(FieldContactName, b.ContactName)
	set(FieldContactPhone, b.ContactPhone)
	set(FieldContactEmail, b.ContactEmail)
	set(FieldCompanyName, b.CompanyName)
	set(FieldCompanyURL, b.CompanyURL)
	set(FieldAddress, b.Address)
	set(FieldDate, b.Date)
	set(FieldTime, b.Time)
	set(FieldNotes, b.Notes)
	if b.EstimatedSize != nil {
		event[FieldEstimatedSize] = b.EstimatedSize
	}
	return event
}

// Booking record field paths written by the persister.
const (
	RecordFieldMappingConfirmation = "mappingConfirmation"
	MappingStatusConfirmed         = "CONFIRMED"
)
