// Package tracker submits extracted records to the vehicle maintenance tracker and reads its
// vehicle and extra-field directories.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/garagescan/internal/logger"
	"github.com/platinummonkey/garagescan/internal/types"
)

const (
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retries
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the initial delay between retries
	DefaultRetryDelay = 1 * time.Second
)

// recordPaths maps a record type to its add endpoint
var recordPaths = map[types.RecordType]string{
	types.RecordService: "/api/vehicle/servicerecords/add",
	types.RecordRepair:  "/api/vehicle/repairrecords/add",
	types.RecordUpgrade: "/api/vehicle/upgraderecords/add",
}

// extraFieldLabels maps the tracker's record type names to the labels used in prompts
var extraFieldLabels = map[string]string{
	"GasRecord":     "fuel",
	"ServiceRecord": string(types.RecordService),
	"RepairRecord":  string(types.RecordRepair),
	"UpgradeRecord": string(types.RecordUpgrade),
}

// Client is an HTTP client for the tracker API
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *logger.Logger
	maxRetries int
	retryDelay time.Duration
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// WithAPIKey sets the key sent in the x-api-key header
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) ClientOption {
	return func(c *Client) {
		c.logger = log
	}
}

// WithMaxRetries sets the maximum number of retries
func WithMaxRetries(maxRetries int) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
	}
}

// WithRetryDelay sets the initial retry delay
func WithRetryDelay(delay time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = delay
	}
}

// NewClient creates a new tracker client for the given base URL
func NewClient(endpoint string, opts ...ClientOption) *Client {
	client := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:     logger.Get(),
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// doRequest performs an HTTP request with retry logic.
// form is sent url-encoded when non-nil; response is decoded as JSON when non-nil.
func (c *Client) doRequest(ctx context.Context, method, path string, form url.Values, response interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<uint(attempt-1)) // exponential backoff
			c.logger.Debugf("Retrying tracker request (attempt %d/%d) after %v", attempt, c.maxRetries, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		var reqBody io.Reader
		if form != nil {
			reqBody = strings.NewReader(form.Encode())
		}

		req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reqBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-api-key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("failed to execute request: %w", ctx.Err())
			}
			lastErr = fmt.Errorf("failed to execute request: %w", err)
			c.logger.Debugf("Tracker request failed: %v", lastErr)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			c.logger.Debugf("Failed to read tracker response: %v", lastErr)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var errResp ErrorResponse
			var errMsg string
			if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
				errMsg = fmt.Sprintf("tracker API error (status %d): %s", resp.StatusCode, errResp.Message)
			} else {
				errMsg = fmt.Sprintf("tracker API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
			}

			// For 5xx server errors, retry. For 4xx client errors, return immediately
			if resp.StatusCode >= 500 {
				lastErr = errors.New(errMsg)
				c.logger.Debugf("Tracker server error: %v", lastErr)
				continue
			}
			return errors.New(errMsg)
		}

		if response != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, response); err != nil {
				return fmt.Errorf("failed to unmarshal response: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// ListVehicles returns the tracker's vehicle directory
func (c *Client) ListVehicles(ctx context.Context) ([]types.Vehicle, error) {
	var resp []vehicleResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/vehicles", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}

	vehicles := make([]types.Vehicle, 0, len(resp))
	for _, v := range resp {
		vehicles = append(vehicles, types.Vehicle{ID: v.ID, Name: vehicleName(v)})
	}
	return vehicles, nil
}

// ListExtraFields returns the custom field names per record type label (fuel, service, repair, upgrade)
func (c *Client) ListExtraFields(ctx context.Context) (map[string][]string, error) {
	var resp []extraFieldGroup
	if err := c.doRequest(ctx, http.MethodGet, "/api/extrafields", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list extra fields: %w", err)
	}

	out := make(map[string][]string)
	for _, group := range resp {
		label, ok := extraFieldLabels[group.RecordType]
		if !ok {
			continue
		}
		for _, f := range group.ExtraFields {
			if name := strings.TrimSpace(f.Name); name != "" {
				out[label] = append(out[label], name)
			}
		}
	}
	return out, nil
}

// AddFuelRecord submits a fill-up
func (c *Client) AddFuelRecord(ctx context.Context, rec FuelRecord) error {
	if rec.VehicleID <= 0 {
		return fmt.Errorf("fuel record needs a vehicle id")
	}

	form := url.Values{}
	form.Set("date", recordDate(rec.Date))
	setNumber(form, "odometer", rec.Odometer, 0)
	setNumber(form, "fuelConsumed", rec.FuelConsumed, 3)
	setNumber(form, "cost", rec.Cost, 2)
	form.Set("isFillToFull", strconv.FormatBool(rec.IsFillToFull))
	form.Set("missedFuelUp", strconv.FormatBool(rec.MissedFuelUp))
	if rec.Notes != "" {
		form.Set("notes", rec.Notes)
	}
	if len(rec.Tags) > 0 {
		form.Set("tags", strings.Join(rec.Tags, " "))
	}

	path := "/api/vehicle/gasrecords/add?vehicleId=" + strconv.Itoa(rec.VehicleID)
	if err := c.doRequest(ctx, http.MethodPost, path, form, nil); err != nil {
		return fmt.Errorf("failed to add fuel record: %w", err)
	}

	c.logger.WithFields("vehicle_id", rec.VehicleID).Info("Fuel record submitted")
	return nil
}

// AddServiceRecord submits one extracted record to the endpoint matching its record type
func (c *Client) AddServiceRecord(ctx context.Context, rec types.ServiceRecord) error {
	if rec.RecordType == nil {
		return fmt.Errorf("record has no record type")
	}
	path, ok := recordPaths[*rec.RecordType]
	if !ok {
		return fmt.Errorf("unsupported record type %q", *rec.RecordType)
	}
	if rec.VehicleID == nil || *rec.VehicleID <= 0 {
		return fmt.Errorf("%s record needs a vehicle id", *rec.RecordType)
	}

	form := url.Values{}
	date := ""
	if rec.Date != nil {
		date = *rec.Date
	}
	form.Set("date", recordDate(date))
	setNumber(form, "odometer", rec.Odometer, 0)
	setNumber(form, "cost", rec.TotalCost, 2)
	if rec.Description != nil {
		form.Set("description", *rec.Description)
	}
	if rec.Notes != nil {
		form.Set("notes", *rec.Notes)
	}
	if len(rec.Tags) > 0 {
		form.Set("tags", strings.Join(rec.Tags, " "))
	}
	for i, f := range rec.ExtraFields {
		form.Set(fmt.Sprintf("extraFields[%d][name]", i), f.Name)
		form.Set(fmt.Sprintf("extraFields[%d][value]", i), f.Value)
	}

	path += "?vehicleId=" + strconv.Itoa(*rec.VehicleID)
	if err := c.doRequest(ctx, http.MethodPost, path, form, nil); err != nil {
		return fmt.Errorf("failed to add %s record: %w", *rec.RecordType, err)
	}

	c.logger.WithFields("vehicle_id", *rec.VehicleID, "record_type", *rec.RecordType).Info("Record submitted")
	return nil
}

// HealthCheck verifies that the tracker is reachable and the key is accepted
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.ListVehicles(ctx); err != nil {
		return fmt.Errorf("tracker is not accessible: %w", err)
	}
	return nil
}

func vehicleName(v vehicleResponse) string {
	var parts []string
	if v.Year > 0 {
		parts = append(parts, strconv.Itoa(v.Year))
	}
	for _, s := range []string{v.Make, v.Model} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	name := strings.Join(parts, " ")
	if plate := strings.TrimSpace(v.LicensePlate); plate != "" {
		if name == "" {
			return plate
		}
		name += " (" + plate + ")"
	}
	if name == "" {
		name = fmt.Sprintf("Vehicle %d", v.ID)
	}
	return name
}

// recordDate defaults a missing date to today
func recordDate(date string) string {
	if date = strings.TrimSpace(date); date != "" {
		return date
	}
	return time.Now().Format("2006-01-02")
}

func setNumber(form url.Values, key string, v *float64, precision int) {
	if v == nil {
		return
	}
	form.Set(key, strconv.FormatFloat(*v, 'f', precision, 64))
}
