// Package settings persists the calculator's admin configuration blobs.
package settings

import (
	"encoding/json"
	"errors"
	"time"
)

// Setting types stored in admin_settings.
const (
	TypePricing    = "pricing"
	TypeCurriculum = "curriculum"
	TypeStructure  = "curriculum_structure"
)

// Fixed row identifiers, one per setting type.
const (
	PricingID    = "pricing_config"
	CurriculumID = "curriculum_config"
	StructureID  = "curriculum_structure_config"
)

var (
	// ErrNotFound is returned when no row matches the requested id.
	ErrNotFound = errors.New("settings: not found")
	// ErrConflict is returned when creating a row whose id already exists.
	ErrConflict = errors.New("settings: already exists")
	// ErrStoreUnavailable indicates the store dependency is not configured.
	ErrStoreUnavailable = errors.New("settings: store unavailable")
)

// Setting is one row of admin_settings. Value holds the raw JSON document.
type Setting struct {
	ID        string          `json:"id"`
	Type      string          `json:"setting_type"`
	Value     json.RawMessage `json:"setting_value"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// IDFor returns the fixed row id used for a setting type.
func IDFor(settingType string) (string, bool) {
	switch settingType {
	case TypePricing:
		return PricingID, true
	case TypeCurriculum:
		return CurriculumID, true
	case TypeStructure:
		return StructureID, true
	default:
		return "", false
	}
}

// TypeForID is the inverse of IDFor.
func TypeForID(id string) (string, bool) {
	switch id {
	case PricingID:
		return TypePricing, true
	case CurriculumID:
		return TypeCurriculum, true
	case StructureID:
		return TypeStructure, true
	default:
		return "", false
	}
}

// Event describes a successful write, fanned out to stream subscribers.
type Event struct {
	Op   string    `json:"op"`
	ID   string    `json:"id"`
	Type string    `json:"setting_type,omitempty"`
	At   time.Time `json:"at"`
}

// Write operations carried by Event.Op.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// Notifier receives change events after writes commit.
type Notifier interface {
	Publish(Event)
}
