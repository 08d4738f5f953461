package tracker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/platinummonkey/garagescan/internal/logger"
	"github.com/platinummonkey/garagescan/internal/types"
)

func newTestClient(url string, opts ...ClientOption) *Client {
	base := []ClientOption{WithAPIKey("tracker-key"), WithLogger(logger.Nop()), WithRetryDelay(time.Millisecond)}
	return NewClient(url, append(base, opts...)...)
}

func ptr[T any](v T) *T { return &v }

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		opts     []ClientOption
		wantURL  string
	}{
		{name: "plain", endpoint: "http://tracker:8080", wantURL: "http://tracker:8080"},
		{name: "trailing slash", endpoint: "http://tracker:8080/", wantURL: "http://tracker:8080"},
		{
			name:     "with options",
			endpoint: "http://tracker",
			opts:     []ClientOption{WithTimeout(5 * time.Second), WithMaxRetries(1), WithAPIKey("k")},
			wantURL:  "http://tracker",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.endpoint, tt.opts...)
			if client.endpoint != tt.wantURL {
				t.Errorf("endpoint = %v, want %v", client.endpoint, tt.wantURL)
			}
		})
	}
}

func TestClient_ListVehicles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/vehicles" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "tracker-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 1, "year": 2019, "make": "Honda", "model": "Civic", "licensePlate": "ABC123"},
			{"id": 2, "make": "Ural", "model": ""},
			{"id": 3}
		]`))
	}))
	defer server.Close()

	vehicles, err := newTestClient(server.URL).ListVehicles(context.Background())
	if err != nil {
		t.Fatalf("ListVehicles() error = %v", err)
	}

	want := []types.Vehicle{
		{ID: 1, Name: "2019 Honda Civic (ABC123)"},
		{ID: 2, Name: "Ural"},
		{ID: 3, Name: "Vehicle 3"},
	}
	if len(vehicles) != len(want) {
		t.Fatalf("got %d vehicles, want %d", len(vehicles), len(want))
	}
	for i := range want {
		if vehicles[i] != want[i] {
			t.Errorf("vehicle %d = %+v, want %+v", i, vehicles[i], want[i])
		}
	}
}

func TestClient_ListExtraFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"recordType": "ServiceRecord", "extraFields": [{"name": "Shop"}, {"name": " "}]},
			{"recordType": "GasRecord", "extraFields": [{"name": "Station"}]},
			{"recordType": "PlanRecord", "extraFields": [{"name": "Ignored"}]}
		]`))
	}))
	defer server.Close()

	fields, err := newTestClient(server.URL).ListExtraFields(context.Background())
	if err != nil {
		t.Fatalf("ListExtraFields() error = %v", err)
	}
	if strings.Join(fields["service"], ",") != "Shop" || strings.Join(fields["fuel"], ",") != "Station" || len(fields) != 2 {
		t.Errorf("fields = %v", fields)
	}
}

func TestClient_AddFuelRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/vehicle/gasrecords/add" || r.URL.Query().Get("vehicleId") != "7" {
			t.Errorf("unexpected url %s", r.URL)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		checks := map[string]string{
			"date":         "2024-03-01",
			"odometer":     "81200",
			"fuelConsumed": "40.512",
			"cost":         "71.25",
			"isFillToFull": "true",
			"missedFuelUp": "false",
			"tags":         "roadtrip work",
		}
		for k, want := range checks {
			if got := r.PostForm.Get(k); got != want {
				t.Errorf("%s = %q, want %q", k, got, want)
			}
		}
		_, _ = w.Write([]byte(`{"success": true, "message": "Gas Record Added"}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).AddFuelRecord(context.Background(), FuelRecord{
		VehicleID:    7,
		Date:         "2024-03-01",
		Odometer:     ptr(81200.0),
		FuelConsumed: ptr(40.512),
		Cost:         ptr(71.25),
		IsFillToFull: true,
		Tags:         []string{"roadtrip", "work"},
	})
	if err != nil {
		t.Fatalf("AddFuelRecord() error = %v", err)
	}
}

func TestClient_AddFuelRecordOmitsUnknownValues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if _, ok := r.PostForm["odometer"]; ok {
			t.Error("odometer should be omitted when unknown")
		}
		if r.PostForm.Get("date") == "" {
			t.Error("date should default to today")
		}
	}))
	defer server.Close()

	if err := newTestClient(server.URL).AddFuelRecord(context.Background(), FuelRecord{VehicleID: 1, Cost: ptr(10.0)}); err != nil {
		t.Fatal(err)
	}
	if err := newTestClient(server.URL).AddFuelRecord(context.Background(), FuelRecord{}); err == nil {
		t.Error("expected error without a vehicle id")
	}
}

func TestClient_AddServiceRecord(t *testing.T) {
	tests := []struct {
		name       string
		recordType types.RecordType
		wantPath   string
	}{
		{"service", types.RecordService, "/api/vehicle/servicerecords/add"},
		{"repair", types.RecordRepair, "/api/vehicle/repairrecords/add"},
		{"upgrade", types.RecordUpgrade, "/api/vehicle/upgraderecords/add"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != tt.wantPath || r.URL.Query().Get("vehicleId") != "3" {
					t.Errorf("unexpected url %s", r.URL)
				}
				_ = r.ParseForm()
				if r.PostForm.Get("description") != "Oil change" || r.PostForm.Get("cost") != "49.99" {
					t.Errorf("form = %v", r.PostForm)
				}
				if r.PostForm.Get("extraFields[0][name]") != "Shop" || r.PostForm.Get("extraFields[0][value]") != "Main St Garage" {
					t.Errorf("extra fields = %v", r.PostForm)
				}
				if _, ok := r.PostForm["notes"]; ok {
					t.Error("notes should be omitted when nil")
				}
			}))
			defer server.Close()

			rt := tt.recordType
			rec := types.ServiceRecord{
				RecordType:  &rt,
				VehicleID:   ptr(3),
				Date:        ptr("2024-01-02"),
				Description: ptr("Oil change"),
				TotalCost:   ptr(49.99),
				ExtraFields: []types.ExtraField{{Name: "Shop", Value: "Main St Garage"}},
			}
			if err := newTestClient(server.URL).AddServiceRecord(context.Background(), rec); err != nil {
				t.Fatalf("AddServiceRecord() error = %v", err)
			}
		})
	}
}

func TestClient_AddServiceRecordRejects(t *testing.T) {
	client := newTestClient("http://unused.invalid")
	service := types.RecordService
	tests := []struct {
		name string
		rec  types.ServiceRecord
		want string
	}{
		{"no type", types.ServiceRecord{VehicleID: ptr(1)}, "no record type"},
		{"unknown type", types.ServiceRecord{RecordType: ptr(types.RecordType("tax")), VehicleID: ptr(1)}, "unsupported record type"},
		{"no vehicle", types.ServiceRecord{RecordType: &service}, "needs a vehicle id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.AddServiceRecord(context.Background(), tt.rec)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestClient_Retry(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).ListVehicles(context.Background()); err != nil {
		t.Fatalf("ListVehicles() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success": false, "message": "Invalid API key"}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).HealthCheck(context.Background())
	if err == nil || !strings.Contains(err.Error(), "tracker API error (status 401): Invalid API key") {
		t.Errorf("error = %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestClient_RetriesExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, WithMaxRetries(1)).ListVehicles(context.Background())
	if err == nil || !strings.Contains(err.Error(), "request failed after 2 attempts") || !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %v", err)
	}
}

func TestClient_Canceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).ListVehicles(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
