package pricing

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed pricing.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// SchemaError lists every violation found in a pricing document.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "invalid pricing config: " + strings.Join(e.Problems, "; ")
}

// ValidateDocument checks raw JSON against the pricing schema.
func ValidateDocument(doc []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile pricing schema: %w", err)
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return &SchemaError{Problems: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return &SchemaError{Problems: problems}
}

// DecodeConfig validates doc and decodes it into a Config.
func DecodeConfig(doc []byte) (Config, error) {
	if err := ValidateDocument(doc); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode pricing config: %w", err)
	}
	return cfg, nil
}
