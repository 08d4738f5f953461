// Package types holds the data model shared by the extraction packages.
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultMediaType is assumed for images that do not declare a MIME type
const DefaultMediaType = "image/jpeg"

// MaxServiceImages is the number of document images forwarded to a provider
const MaxServiceImages = 3

// Image is a binary image blob (photograph or rendered document page)
type Image struct {
	// MediaType is the MIME type of Data (default: image/jpeg)
	MediaType string

	// Data is the raw, already downscaled image
	Data []byte
}

// MIME returns the media type, falling back to DefaultMediaType
func (i Image) MIME() string {
	if mt := strings.TrimSpace(i.MediaType); mt != "" {
		return mt
	}
	return DefaultMediaType
}

// Size returns the byte size of the image data
func (i Image) Size() int {
	return len(i.Data)
}

// TaskKind names an extraction task
type TaskKind string

const (
	// TaskFuel reads a fill-up from a pump photo and an odometer photo
	TaskFuel TaskKind = "fuel"

	// TaskService reads service/repair/upgrade records from a document
	TaskService TaskKind = "service"
)

// Vehicle is one entry of the tracker's vehicle directory
type Vehicle struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// FuelRequest asks for the three fill-up numbers from a pump photo and an odometer photo
type FuelRequest struct {
	// Pump is the photo of the pump display
	Pump Image

	// Odometer is the photo of the dashboard odometer
	Odometer Image

	// Model overrides the provider default model when the provider entry has none
	Model string
}

// ServiceRequest asks for service/repair/upgrade records from a document
type ServiceRequest struct {
	// Images are rendered pages or photos; only the first MaxServiceImages are sent
	Images []Image

	// DocumentText is text extracted from the document (may be empty)
	DocumentText string

	// Vehicles is the menu of known vehicles
	Vehicles []Vehicle

	// ExtraFields maps a record type label to the custom field names configured for it
	ExtraFields map[string][]string

	// Model overrides the provider default model when the provider entry has none
	Model string
}

// FuelExtraction is the validated result of a fuel extraction
type FuelExtraction struct {
	Odometer     *float64        `json:"odometer"`
	FuelQuantity *float64        `json:"fuelQuantity"`
	TotalCost    *float64        `json:"totalCost"`
	Explanation  *string         `json:"explanation,omitempty"`
	Raw          json.RawMessage `json:"-"`
}

// Useful reports whether at least one numeric field was read
func (f *FuelExtraction) Useful() bool {
	return f.Odometer != nil || f.FuelQuantity != nil || f.TotalCost != nil
}

// RecordType classifies a service extraction record
type RecordType string

const (
	RecordService RecordType = "service"
	RecordRepair  RecordType = "repair"
	RecordUpgrade RecordType = "upgrade"
)

// RecordTypes lists the accepted record types in prompt order
var RecordTypes = []RecordType{RecordService, RecordRepair, RecordUpgrade}

// ExtraField is a name/value pair for a tracker custom field
type ExtraField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ServiceRecord is one record extracted from an invoice or receipt
type ServiceRecord struct {
	RecordType  *RecordType  `json:"recordType"`
	VehicleID   *int         `json:"vehicleId"`
	Date        *string      `json:"date"`
	Odometer    *float64     `json:"odometer"`
	Description *string      `json:"description"`
	TotalCost   *float64     `json:"totalCost"`
	Notes       *string      `json:"notes,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	ExtraFields []ExtraField `json:"extraFields,omitempty"`
	Explanation *string      `json:"explanation,omitempty"`
}

// WarningReason says why a field deserves a second look
type WarningReason string

const (
	ReasonMissing   WarningReason = "missing"
	ReasonGuessed   WarningReason = "guessed"
	ReasonUncertain WarningReason = "uncertain"
	ReasonConflict  WarningReason = "conflict"
)

// Warning points at one field of one record
type Warning struct {
	Path    string        `json:"path"`
	Reason  WarningReason `json:"reason"`
	Message *string       `json:"message,omitempty"`
}

// ServiceExtraction is the validated result of a service extraction
type ServiceExtraction struct {
	Records     []ServiceRecord `json:"records"`
	Explanation *string         `json:"explanation,omitempty"`
	Warnings    []Warning       `json:"warnings,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// WarningsFor returns the warnings addressing the record at index
func (s *ServiceExtraction) WarningsFor(index int) []Warning {
	var out []Warning
	for _, w := range s.Warnings {
		if i, _, ok := ParseWarningPath(w.Path); ok && i == index {
			out = append(out, w)
		}
	}
	return out
}

// ParseWarningPath splits "/records/<index>/<field>" into its parts.
// A path addressing the whole record ("/records/2") yields an empty field.
func ParseWarningPath(path string) (int, string, bool) {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) < 2 || parts[0] != "records" {
		return 0, "", false
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil || index < 0 {
		return 0, "", false
	}
	field := ""
	if len(parts) > 2 {
		field = strings.Join(parts[2:], "/")
	}
	return index, field, true
}

// WarningPath builds the path addressing field of record index
func WarningPath(index int, field string) string {
	if field == "" {
		return fmt.Sprintf("/records/%d", index)
	}
	return fmt.Sprintf("/records/%d/%s", index, field)
}
