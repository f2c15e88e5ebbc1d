// Package seed installs the default calculator configuration and the
// bootstrap admin account.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/kodeit-calculator/internal/curriculum"
	"github.com/noah-isme/kodeit-calculator/internal/pricing"
	"github.com/noah-isme/kodeit-calculator/internal/settings"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults is the configuration a fresh deployment starts from.
type Defaults struct {
	Pricing    pricing.Config       `yaml:"pricing"`
	Curriculum []curriculum.Level   `yaml:"curriculum"`
	Structure  curriculum.Structure `yaml:"structure"`
}

var (
	defaultsOnce sync.Once
	defaults     Defaults
	defaultsErr  error
)

// LoadDefaults parses the embedded defaults. The result is shared; callers
// that modify it must copy first.
func LoadDefaults() (Defaults, error) {
	defaultsOnce.Do(func() {
		defaults, defaultsErr = ParseDefaults(defaultsYAML)
	})
	return defaults, defaultsErr
}

// ParseDefaults decodes a defaults document.
func ParseDefaults(doc []byte) (Defaults, error) {
	var d Defaults
	if err := yaml.Unmarshal(doc, &d); err != nil {
		return Defaults{}, fmt.Errorf("seed: parse defaults: %w", err)
	}
	d.Curriculum = curriculum.Canonicalize(d.Curriculum)
	return d, nil
}

// MustDefaults is LoadDefaults for callers that cannot recover from a broken build.
func MustDefaults() Defaults {
	d, err := LoadDefaults()
	if err != nil {
		panic(err)
	}
	return d
}

// Documents returns the JSON blobs keyed by setting id.
func (d Defaults) Documents() (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, 3)
	for id, v := range map[string]any{
		settings.PricingID:    d.Pricing,
		settings.CurriculumID: d.Curriculum,
		settings.StructureID:  d.Structure,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("seed: encode %s: %w", id, err)
		}
		out[id] = data
	}
	return out, nil
}

// SettingsStore is the subset of the settings service Apply needs.
type SettingsStore interface {
	GetByID(ctx context.Context, id string) (settings.Setting, error)
	Create(ctx context.Context, s settings.Setting) (settings.Setting, error)
}

// AdminBootstrapper creates the first admin account when it is missing.
type AdminBootstrapper interface {
	EnsureAdmin(ctx context.Context, email, password string) (bool, error)
}

// Seeder writes missing defaults.
type Seeder struct {
	Settings      SettingsStore
	Admins        AdminBootstrapper
	AdminEmail    string
	AdminPassword string
	Logger        zerolog.Logger
}

// Report lists what Apply did.
type Report struct {
	Created      []string `json:"created"`
	Existing     []string `json:"existing"`
	AdminCreated bool     `json:"adminCreated"`
}

var seedOrder = []string{settings.PricingID, settings.CurriculumID, settings.StructureID}

// Apply creates every default setting that is not stored yet and, when
// credentials are configured, the bootstrap admin. Stored values are never
// overwritten.
func (s *Seeder) Apply(ctx context.Context) (Report, error) {
	var report Report
	if s.Settings == nil {
		return report, errors.New("seed: settings store not configured")
	}
	d, err := LoadDefaults()
	if err != nil {
		return report, err
	}
	docs, err := d.Documents()
	if err != nil {
		return report, err
	}

	for _, id := range seedOrder {
		_, err := s.Settings.GetByID(ctx, id)
		switch {
		case err == nil:
			report.Existing = append(report.Existing, id)
			continue
		case !errors.Is(err, settings.ErrNotFound):
			return report, fmt.Errorf("seed: read %s: %w", id, err)
		}
		settingType, _ := settings.TypeForID(id)
		_, err = s.Settings.Create(ctx, settings.Setting{ID: id, Type: settingType, Value: docs[id]})
		if err != nil && !errors.Is(err, settings.ErrConflict) {
			return report, fmt.Errorf("seed: create %s: %w", id, err)
		}
		report.Created = append(report.Created, id)
		s.Logger.Info().Str("setting_id", id).Msg("default setting installed")
	}

	email := strings.TrimSpace(s.AdminEmail)
	if email == "" || s.AdminPassword == "" || s.Admins == nil {
		return report, nil
	}
	created, err := s.Admins.EnsureAdmin(ctx, email, s.AdminPassword)
	if err != nil {
		return report, fmt.Errorf("seed: bootstrap admin: %w", err)
	}
	report.AdminCreated = created
	if created {
		s.Logger.Info().Str("email", email).Msg("bootstrap admin created")
	}
	return report, nil
}
