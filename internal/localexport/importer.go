// Package localexport migrates the admin data a browser kept in local storage
// into the settings store.
package localexport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/noah-isme/kodeit-calculator/internal/curriculum"
	"github.com/noah-isme/kodeit-calculator/internal/pricing"
)

// Local-storage keys written by the admin UI.
const (
	KeyPricing    = "kodeit_admin_pricing"
	KeyCurriculum = "kodeit_admin_curriculum"
	KeyStructure  = "kodeit_admin_curriculum_structure"
)

// Keys lists the migrated keys in the order they are applied.
var Keys = []string{KeyPricing, KeyCurriculum, KeyStructure}

// Target stores the validated documents. *catalog.Service satisfies it.
type Target interface {
	SavePricing(ctx context.Context, doc []byte) (pricing.Config, error)
	SaveCurriculum(ctx context.Context, levels []curriculum.Level) ([]curriculum.Level, error)
	SaveStructure(ctx context.Context, st curriculum.Structure) (curriculum.Structure, error)
}

// Report lists which keys were written and which were absent from the export.
type Report struct {
	Migrated []string `json:"migrated"`
	Skipped  []string `json:"skipped"`
}

// Importer applies an export to a Target.
type Importer struct {
	Target Target
	Logger zerolog.Logger
}

// Import reads a JSON object from r and saves every known key it contains.
// The first failure stops the run; keys migrated before it stay migrated.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Report, error) {
	var report Report
	if im.Target == nil {
		return report, errors.New("localexport: target not configured")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return report, fmt.Errorf("localexport: read export: %w", err)
	}
	var export map[string]json.RawMessage
	if err := json.Unmarshal(data, &export); err != nil {
		return report, fmt.Errorf("localexport: export must be a JSON object: %w", err)
	}

	for _, key := range Keys {
		raw, ok := export[key]
		if !ok || isNull(raw) {
			report.Skipped = append(report.Skipped, key)
			continue
		}
		doc, err := unwrap(raw)
		if err != nil {
			return report, fmt.Errorf("localexport: %s: %w", key, err)
		}
		if err := im.apply(ctx, key, doc); err != nil {
			return report, fmt.Errorf("localexport: %s: %w", key, err)
		}
		report.Migrated = append(report.Migrated, key)
		im.Logger.Info().Str("key", key).Msg("local setting migrated")
	}
	return report, nil
}

func (im *Importer) apply(ctx context.Context, key string, doc []byte) error {
	switch key {
	case KeyPricing:
		_, err := im.Target.SavePricing(ctx, doc)
		return err
	case KeyCurriculum:
		var raw any
		if err := json.Unmarshal(doc, &raw); err != nil {
			return err
		}
		if _, ok := raw.([]any); !ok {
			return errors.New("curriculum must be an array of levels")
		}
		_, err := im.Target.SaveCurriculum(ctx, curriculum.Normalize(raw))
		return err
	case KeyStructure:
		var st curriculum.Structure
		if err := json.Unmarshal(doc, &st); err != nil {
			return err
		}
		_, err := im.Target.SaveStructure(ctx, st)
		return err
	}
	return fmt.Errorf("unknown key %q", key)
}

// unwrap returns the document behind a value that local storage holds either
// as a JSON string or as the decoded object.
func unwrap(raw json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return trimmed, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, err
	}
	inner := bytes.TrimSpace([]byte(s))
	if !json.Valid(inner) {
		return nil, errors.New("value is not valid JSON")
	}
	return inner, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
