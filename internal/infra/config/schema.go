package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var configSchemaJSON []byte

var (
	configSchemaOnce sync.Once
	configSchema     *jsonschema.Resolved
	configSchemaErr  error
)

func resolvedConfigSchema() (*jsonschema.Resolved, error) {
	configSchemaOnce.Do(func() {
		var schema jsonschema.Schema
		if err := json.Unmarshal(configSchemaJSON, &schema); err != nil {
			configSchemaErr = fmt.Errorf("parse config schema: %w", err)
			return
		}
		configSchema, configSchemaErr = schema.Resolve(nil)
	})
	return configSchema, configSchemaErr
}

// validateConfigSchema checks the expanded YAML document against the
// embedded config schema.
func validateConfigSchema(expanded []byte) error {
	var doc any
	if err := yaml.Unmarshal(expanded, &doc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if doc == nil {
		return nil
	}
	// Normalize YAML scalars to their JSON forms before validation.
	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config is not representable as JSON: %w", err)
	}
	var instance any
	if err := json.Unmarshal(encoded, &instance); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	schema, err := resolvedConfigSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	return nil
}
