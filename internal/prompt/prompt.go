// Package prompt builds the instructions sent to vision models for each extraction task.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/platinummonkey/garagescan/internal/types"
)

// MaxDocumentChars is the number of document text characters fed to the model
const MaxDocumentChars = 12000

// FuelPrompt asks for the three fill-up numbers from the pump and odometer photos.
// The first image is the pump display, the second the odometer.
const FuelPrompt = `You are reading two photos taken at a fuel fill-up.
Image 1 is the fuel pump display. Image 2 is the vehicle odometer.

Return ONLY valid JSON with no markdown formatting, no code blocks, no extra prose.

Format:
{
  "odometer": 123456,
  "fuelQuantity": 42.137,
  "totalCost": 71.25,
  "explanation": "short note"
}

Rules:
- "odometer" is the total distance shown on the odometer photo (not a trip meter)
- "fuelQuantity" is the volume dispensed shown on the pump, in the unit displayed
- "totalCost" is the total amount charged shown on the pump
- Use "." as the decimal separator in the JSON even when the display uses ","; never use thousands separators
- Numbers must be JSON numbers, not strings, and must not include units or currency symbols
- If a value is unreadable or not visible, use null and say why in "explanation"
- Do not guess digits you cannot see
- "explanation" is optional when every value was read clearly`

// ServiceParams holds the inputs of the service/repair/upgrade prompt
type ServiceParams struct {
	// DocumentText is the full extracted document text (may be empty)
	DocumentText string

	// ImageCount is the number of images attached to the request
	ImageCount int

	// Vehicles is the vehicle menu
	Vehicles []types.Vehicle

	// ExtraFields maps record type label to custom field names
	ExtraFields map[string][]string
}

// ServicePrompt is the service instruction plus a variant safe to log
type ServicePrompt struct {
	// Text is sent to the provider
	Text string

	// Redacted replaces the document text with a length placeholder
	Redacted string
}

// Fuel returns the fuel fill-up prompt
func Fuel() string {
	return FuelPrompt
}

// Service builds the service-record prompt and its redacted variant
func Service(p ServiceParams) ServicePrompt {
	head := serviceHead(p)
	tail := serviceRules

	text := strings.TrimSpace(p.DocumentText)
	truncated := Truncate(text, MaxDocumentChars)

	var full, redacted string
	if text == "" {
		section := "DOCUMENT TEXT:\n(no extracted text; read the attached images)\n\n"
		full = head + section + tail
		redacted = full
	} else {
		// lengths are reported against the text as given, before trimming
		full = head + documentSection(truncated, len([]rune(p.DocumentText))) + tail
		redacted = head + "DOCUMENT TEXT:\n" + RedactedPlaceholder(p.DocumentText) + "\n\n" + tail
	}

	return ServicePrompt{Text: full, Redacted: redacted}
}

// RedactedPlaceholder stands in for document text in debug output
func RedactedPlaceholder(text string) string {
	return fmt.Sprintf("[document text omitted: %d characters]", len([]rune(text)))
}

// Truncate cuts s to at most max characters
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func documentSection(text string, fullLen int) string {
	var b strings.Builder
	b.WriteString("DOCUMENT TEXT")
	if fullLen > MaxDocumentChars {
		fmt.Fprintf(&b, " (first %d of %d characters)", MaxDocumentChars, fullLen)
	}
	b.WriteString(":\n<<<\n")
	b.WriteString(text)
	b.WriteString("\n>>>\n\n")
	return b.String()
}

func serviceHead(p ServiceParams) string {
	var b strings.Builder

	b.WriteString("You are reading a vehicle service document (invoice, receipt or work order)")
	switch {
	case p.ImageCount == 1:
		b.WriteString(" provided as 1 image")
		if strings.TrimSpace(p.DocumentText) != "" {
			b.WriteString(" and extracted text")
		}
	case p.ImageCount > 1:
		fmt.Fprintf(&b, " provided as %d images", p.ImageCount)
		if strings.TrimSpace(p.DocumentText) != "" {
			b.WriteString(" and extracted text")
		}
	default:
		b.WriteString(" provided as extracted text")
	}
	b.WriteString(".\nExtract maintenance records for a vehicle-maintenance tracker.\n\n")

	b.WriteString("KNOWN VEHICLES (id: name):\n")
	b.WriteString(VehicleMenu(p.Vehicles))
	b.WriteString("\n\n")

	b.WriteString("EXTRA FIELDS CONFIGURED PER RECORD TYPE:\n")
	b.WriteString(ExtraFieldMenu(p.ExtraFields))
	b.WriteString("\n\n")

	return b.String()
}

// VehicleMenu renders "- <id>: <name>" lines
func VehicleMenu(vehicles []types.Vehicle) string {
	if len(vehicles) == 0 {
		return "(none configured)"
	}
	lines := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		lines = append(lines, fmt.Sprintf("- %d: %s", v.ID, strings.TrimSpace(v.Name)))
	}
	return strings.Join(lines, "\n")
}

// ExtraFieldMenu renders one line per record type with its custom field names
func ExtraFieldMenu(fields map[string][]string) string {
	var lines []string
	seen := map[string]bool{}
	for _, rt := range types.RecordTypes {
		label := string(rt)
		seen[label] = true
		lines = append(lines, extraFieldLine(label, fields[label]))
	}

	// Labels outside the three record types are still listed, in stable order
	var others []string
	for label := range fields {
		if !seen[label] {
			others = append(others, label)
		}
	}
	sort.Strings(others)
	for _, label := range others {
		lines = append(lines, extraFieldLine(label, fields[label]))
	}
	return strings.Join(lines, "\n")
}

func extraFieldLine(label string, names []string) string {
	var cleaned []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			cleaned = append(cleaned, n)
		}
	}
	if len(cleaned) == 0 {
		return fmt.Sprintf("- %s: (none configured)", label)
	}
	return fmt.Sprintf("- %s: %s", label, strings.Join(cleaned, ", "))
}
