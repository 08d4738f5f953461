// Package schema validates and normalizes the JSON returned by vision models.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/platinummonkey/garagescan/internal/types"
)

var nullableNumber = map[string]any{"type": []any{"number", "null"}}
var nullableString = map[string]any{"type": []any{"string", "null"}}

// FuelSchema describes the fuel fill-up result
var FuelSchema = map[string]any{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type":    "object",
	"properties": map[string]any{
		"odometer":     nullableNumber,
		"fuelQuantity": nullableNumber,
		"totalCost":    nullableNumber,
		"explanation":  nullableString,
	},
	"required": []any{"odometer", "fuelQuantity", "totalCost"},
}

// ServiceSchema describes the service/repair/upgrade result
var ServiceSchema = map[string]any{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type":    "object",
	"properties": map[string]any{
		"records": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"recordType":  map[string]any{"enum": []any{"service", "repair", "upgrade", nil}},
					"vehicleId":   map[string]any{"type": []any{"integer", "null"}},
					"date":        nullableString,
					"odometer":    nullableNumber,
					"description": nullableString,
					"totalCost":   nullableNumber,
					"notes":       nullableString,
					"tags": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
					"extraFields": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"name":  map[string]any{"type": "string"},
								"value": map[string]any{"type": "string"},
							},
							"required": []any{"name", "value"},
						},
					},
					"explanation": nullableString,
				},
				"required": []any{"recordType", "vehicleId", "date", "odometer", "description", "totalCost"},
			},
		},
		"explanation": nullableString,
		"warnings": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":    map[string]any{"type": "string"},
					"reason":  map[string]any{"enum": []any{"missing", "guessed", "uncertain", "conflict"}},
					"message": nullableString,
				},
				"required": []any{"path", "reason"},
			},
		},
	},
	"required": []any{"records"},
}

var (
	fuelValidator    = sync.OnceValues(func() (*jsonschema.Schema, error) { return compile("fuel.json", FuelSchema) })
	serviceValidator = sync.OnceValues(func() (*jsonschema.Schema, error) { return compile("service.json", ServiceSchema) })
)

func compile(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateFuel normalizes raw and checks it against FuelSchema
func ValidateFuel(raw json.RawMessage) (*types.FuelExtraction, error) {
	doc, err := decodeObject(types.TaskFuel, raw)
	if err != nil {
		return nil, err
	}

	coerceNumber(doc, "odometer")
	coerceNumber(doc, "fuelQuantity")
	coerceNumber(doc, "totalCost")
	coerceString(doc, "explanation", false)

	var out types.FuelExtraction
	if err := validateInto(types.TaskFuel, fuelValidator, raw, doc, &out); err != nil {
		return nil, err
	}
	out.Raw = raw
	return &out, nil
}

// ValidateService normalizes raw and checks it against ServiceSchema
func ValidateService(raw json.RawMessage) (*types.ServiceExtraction, error) {
	doc, err := decodeObject(types.TaskService, raw)
	if err != nil {
		return nil, err
	}

	if records, ok := doc["records"].([]any); ok {
		for _, r := range records {
			if rec, ok := r.(map[string]any); ok {
				normalizeRecord(rec)
			}
		}
	}
	coerceString(doc, "explanation", false)
	if warnings, ok := doc["warnings"].([]any); ok {
		for _, w := range warnings {
			if warn, ok := w.(map[string]any); ok {
				coerceEnum(warn, "reason")
				coerceString(warn, "message", false)
			}
		}
	} else if doc["warnings"] == nil {
		delete(doc, "warnings")
	}

	var out types.ServiceExtraction
	if err := validateInto(types.TaskService, serviceValidator, raw, doc, &out); err != nil {
		return nil, err
	}
	out.Raw = raw
	return &out, nil
}

// Validate dispatches to the validator of the given task
func Validate(task types.TaskKind, raw json.RawMessage) (any, error) {
	switch task {
	case types.TaskFuel:
		return ValidateFuel(raw)
	case types.TaskService:
		return ValidateService(raw)
	default:
		return nil, fmt.Errorf("unknown extraction task %q", task)
	}
}

func normalizeRecord(rec map[string]any) {
	coerceEnum(rec, "recordType")
	coerceInteger(rec, "vehicleId")
	coerceString(rec, "date", true)
	coerceNumber(rec, "odometer")
	coerceString(rec, "description", true)
	coerceNumber(rec, "totalCost")
	coerceString(rec, "notes", false)
	coerceString(rec, "explanation", false)
	coerceStringList(rec, "tags")

	if fields, ok := rec["extraFields"].([]any); ok {
		for _, f := range fields {
			if field, ok := f.(map[string]any); ok {
				coerceString(field, "name", false)
				coerceString(field, "value", false)
			}
		}
	} else if rec["extraFields"] == nil {
		delete(rec, "extraFields")
	}
}

func decodeObject(task types.TaskKind, raw json.RawMessage) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, mismatch(task, raw, err)
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, mismatch(task, raw, fmt.Errorf("expected a JSON object"))
	}
	return doc, nil
}

func validateInto(task types.TaskKind, load func() (*jsonschema.Schema, error), raw json.RawMessage, doc map[string]any, out any) error {
	schema, err := load()
	if err != nil {
		return fmt.Errorf("load %s schema: %w", task, err)
	}
	if err := schema.Validate(doc); err != nil {
		return mismatch(task, raw, err)
	}

	// The normalized tree is re-encoded so the typed decode sees the coerced values
	b, err := json.Marshal(doc)
	if err != nil {
		return mismatch(task, raw, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return mismatch(task, raw, err)
	}
	return nil
}
