package workflow

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Sentinel keys understood by the extractor. Keys are matched after
// normalisation, so "ROW_ID" and "Row Id" both read as KeyRowID.
const (
	KeyRowID              = "row-id"
	KeyCompanyURL         = "company-url"
	KeySheetURL           = "sheet-url"
	KeyCalendarEventID    = "calendar-event-id"
	KeyNotificationStatus = "notification-status"
)

// recognizedKeys are the only keys ParseBlock keeps.
var recognizedKeys = map[string]bool{
	KeyRowID:              true,
	KeyCompanyURL:         true,
	KeySheetURL:           true,
	KeyCalendarEventID:    true,
	KeyNotificationStatus: true,
}

// PhaseOneSchemaVersion identifies the contract between the phase-one prompt
// and the gate before phase two. Bump it whenever the required keys change.
const PhaseOneSchemaVersion = "phase-one-extraction/v1"

const phaseOneSchemaJSON = `{
  "$id": "phase-one-extraction/v1",
  "type": "object",
  "required": ["row-id", "company-url"],
  "properties": {
    "row-id":              {"type": "string", "minLength": 1, "description": "Spreadsheet row created for the booking"},
    "company-url":         {"type": "string", "minLength": 1, "description": "Resolved public website of the company"},
    "sheet-url":           {"type": "string", "description": "Spreadsheet the row was written to"},
    "calendar-event-id":   {"type": "string", "description": "Calendar event created for the visit"},
    "notification-status": {"type": "string", "description": "Outcome of the confirmation message"}
  }
}`

// ExtractionSchema validates a phase-one extraction before the phase-two gate opens.
type ExtractionSchema struct {
	Version  string
	schema   *gojsonschema.Schema
	required []string
	describe map[string]string
}

// PhaseOneSchema is the compiled current extraction schema.
var PhaseOneSchema = mustLoadSchema(PhaseOneSchemaVersion, phaseOneSchemaJSON)

func mustLoadSchema(version, source string) *ExtractionSchema {
	s, err := LoadExtractionSchema(version, source)
	if err != nil {
		panic(err)
	}
	return s
}

// LoadExtractionSchema compiles a JSON schema describing a flat string map.
func LoadExtractionSchema(version, source string) (*ExtractionSchema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		return nil, fmt.Errorf("compile extraction schema %s: %w", version, err)
	}

	var doc struct {
		Required   []string `json:"required"`
		Properties map[string]struct {
			Description string `json:"description"`
		} `json:"properties"`
	}
	if err := json.Unmarshal([]byte(source), &doc); err != nil {
		return nil, fmt.Errorf("read extraction schema %s: %w", version, err)
	}
	describe := make(map[string]string, len(doc.Properties))
	for key, prop := range doc.Properties {
		describe[key] = prop.Description
	}

	return &ExtractionSchema{
		Version:  version,
		schema:   compiled,
		required: doc.Required,
		describe: describe,
	}, nil
}

// RequiredKeys returns the mandatory keys in schema order.
func (s *ExtractionSchema) RequiredKeys() []string {
	return append([]string(nil), s.required...)
}

// Check returns the mandatory keys that are absent or invalid in fields.
func (s *ExtractionSchema) Check(fields map[string]string) ([]string, error) {
	doc := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		doc[k] = v
	}
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate extraction against %s: %w", s.Version, err)
	}
	if result.Valid() {
		return nil, nil
	}

	seen := map[string]bool{}
	var missing []string
	for _, re := range result.Errors() {
		key := re.Field()
		if re.Type() == "required" {
			if prop, ok := re.Details()["property"].(string); ok {
				key = prop
			}
		}
		if key == "" || key == gojsonschema.STRING_ROOT_SCHEMA_PROPERTY || seen[key] {
			continue
		}
		seen[key] = true
		missing = append(missing, key)
	}
	sort.Strings(missing)
	return missing, nil
}

// instructions renders the sentinel block the model is asked to emit.
func (s *ExtractionSchema) instructions() string {
	keys := make([]string, 0, len(s.describe))
	for key := range s.describe {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	required := map[string]bool{}
	for _, key := range s.required {
		required[key] = true
	}

	var b strings.Builder
	b.WriteString(blockBegin)
	b.WriteByte('\n')
	for _, key := range keys {
		marker := "optional"
		if required[key] {
			marker = "required"
		}
		fmt.Fprintf(&b, "%s: <%s, %s>\n", key, s.describe[key], marker)
	}
	b.WriteString(blockEnd)
	return b.String()
}
