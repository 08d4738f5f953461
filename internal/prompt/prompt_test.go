package prompt

import (
	"math"
	"strings"
	"testing"

	"github.com/platinummonkey/garagescan/internal/types"
)

func TestFuel(t *testing.T) {
	p := Fuel()
	for _, want := range []string{`"odometer"`, `"fuelQuantity"`, `"totalCost"`, "decimal separator", "null"} {
		if !strings.Contains(p, want) {
			t.Errorf("fuel prompt missing %q", want)
		}
	}
}

func TestVehicleMenu(t *testing.T) {
	got := VehicleMenu([]types.Vehicle{{ID: 3, Name: "2014 Civic"}, {ID: 7, Name: " Outback "}})
	want := "- 3: 2014 Civic\n- 7: Outback"
	if got != want {
		t.Errorf("VehicleMenu() = %q, want %q", got, want)
	}
	if got := VehicleMenu(nil); got != "(none configured)" {
		t.Errorf("VehicleMenu(nil) = %q", got)
	}
}

func TestExtraFieldMenu(t *testing.T) {
	got := ExtraFieldMenu(map[string][]string{
		"service": {"Shop", " "},
		"custom":  {"Warranty"},
	})
	want := strings.Join([]string{
		"- service: Shop",
		"- repair: (none configured)",
		"- upgrade: (none configured)",
		"- custom: Warranty",
	}, "\n")
	if got != want {
		t.Errorf("ExtraFieldMenu() =\n%s\nwant\n%s", got, want)
	}
}

func TestService_IncludesMenusAndRules(t *testing.T) {
	sp := Service(ServiceParams{
		DocumentText: "OIL CHANGE 49.99",
		ImageCount:   2,
		Vehicles:     []types.Vehicle{{ID: 1, Name: "Truck"}},
	})

	for _, want := range []string{
		"- 1: Truck",
		"- service: (none configured)",
		"provided as 2 images and extracted text",
		"OIL CHANGE 49.99",
		"between 1 and 8 records",
		"proportionally to each record's subtotal",
		"rounding remainder goes to the last record",
		"/records/<index>/<field>",
	} {
		if !strings.Contains(sp.Text, want) {
			t.Errorf("service prompt missing %q", want)
		}
	}
}

func TestService_RedactedHidesDocumentText(t *testing.T) {
	doc := "SECRET INVOICE 12345 customer address"
	sp := Service(ServiceParams{DocumentText: doc})

	if strings.Contains(sp.Redacted, "SECRET INVOICE") {
		t.Error("redacted prompt leaks document text")
	}
	if !strings.Contains(sp.Redacted, "[document text omitted: 37 characters]") {
		t.Errorf("redacted prompt missing placeholder:\n%s", sp.Redacted)
	}
	if !strings.Contains(sp.Redacted, "COST ALLOCATION") {
		t.Error("redacted prompt should keep the rules")
	}
}

func TestService_PlaceholderCountsOriginalLength(t *testing.T) {
	doc := "\n\n  Oil change 49,99  \n"
	sp := Service(ServiceParams{DocumentText: doc})

	if !strings.Contains(sp.Redacted, "[document text omitted: 23 characters]") {
		t.Errorf("placeholder should count surrounding whitespace:\n%s", sp.Redacted)
	}
	if !strings.Contains(sp.Text, "<<<\nOil change 49,99\n>>>") {
		t.Errorf("full prompt should carry the trimmed text:\n%s", sp.Text)
	}
}

func TestService_TruncatesDocumentText(t *testing.T) {
	doc := strings.Repeat("a", MaxDocumentChars) + strings.Repeat("b", 500)
	sp := Service(ServiceParams{DocumentText: doc})

	if strings.Contains(sp.Text, "bbbb") {
		t.Error("text beyond the limit should be cut")
	}
	if !strings.Contains(sp.Text, "(first 12000 of 12500 characters)") {
		t.Error("expected truncation note")
	}
	if !strings.Contains(sp.Redacted, "[document text omitted: 12500 characters]") {
		t.Error("placeholder should report the full length")
	}
}

func TestService_NoText(t *testing.T) {
	sp := Service(ServiceParams{ImageCount: 1})
	if !strings.Contains(sp.Text, "(no extracted text; read the attached images)") {
		t.Error("expected no-text note")
	}
	if sp.Text != sp.Redacted {
		t.Error("without document text both variants should match")
	}
}

func TestTruncate_Runes(t *testing.T) {
	if got := Truncate("héllo", 2); got != "hé" {
		t.Errorf("Truncate() = %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Errorf("Truncate() = %q", got)
	}
}

// allocateTax mirrors the allocation rule embedded in the prompt, in cents
func allocateTax(subtotals []int64, tax int64) []int64 {
	var sum int64
	for _, s := range subtotals {
		sum += s
	}
	totals := make([]int64, len(subtotals))
	var allocated int64
	for i, s := range subtotals {
		share := int64(math.Round(float64(tax) * float64(s) / float64(sum)))
		if i == len(subtotals)-1 {
			share = tax - allocated
		}
		allocated += share
		totals[i] = s + share
	}
	return totals
}

func TestCostAllocationExample(t *testing.T) {
	totals := allocateTax([]int64{6000, 4000}, 800)
	if totals[0] != 6480 || totals[1] != 4320 {
		t.Errorf("totals = %v, want [6480 4320]", totals)
	}
	if totals[0]+totals[1] != 10800 {
		t.Errorf("sum = %d, want 10800", totals[0]+totals[1])
	}

	// remainder goes to the last record
	totals = allocateTax([]int64{3333, 3333, 3334}, 100)
	var taxSum int64
	for i, s := range []int64{3333, 3333, 3334} {
		taxSum += totals[i] - s
	}
	if taxSum != 100 {
		t.Errorf("allocated tax = %d, want 100", taxSum)
	}

	if !strings.Contains(serviceRules, "64.80 and 43.20") || !strings.Contains(serviceRules, "108.00") {
		t.Error("prompt example should match the allocation")
	}
}
