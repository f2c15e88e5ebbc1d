package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/kodeit-calculator/internal/common"
	"github.com/noah-isme/kodeit-calculator/internal/obs"
)

// Service fronts the Store with a read-through cache and change notifications.
type Service struct {
	Store    Store
	Cache    *Cache
	Notifier Notifier
	Metrics  *obs.DomainMetrics
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// GetByID returns the setting with id. When the store read fails for any
// reason other than a missing row the last cached copy is served instead.
func (s *Service) GetByID(ctx context.Context, id string) (Setting, error) {
	if s == nil || s.Store == nil {
		return Setting{}, ErrStoreUnavailable
	}
	id = strings.TrimSpace(id)
	key := idKey(id)

	var cached Setting
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err != nil {
		s.log(ctx).Warn().Err(err).Str("key", key).Msg("settings cache read failed")
	} else if ok {
		return cached, nil
	}

	setting, err := s.Store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Setting{}, err
		}
		if ok := s.fallback(ctx, key, &cached, err); ok {
			return cached, nil
		}
		return Setting{}, err
	}
	s.remember(ctx, key, setting)
	return setting, nil
}

// ListByType returns every setting of settingType, falling back to the last
// cached list when the store is unreachable.
func (s *Service) ListByType(ctx context.Context, settingType string) ([]Setting, error) {
	if s == nil || s.Store == nil {
		return nil, ErrStoreUnavailable
	}
	settingType = strings.TrimSpace(settingType)
	key := typeKey(settingType)

	var cached []Setting
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err != nil {
		s.log(ctx).Warn().Err(err).Str("key", key).Msg("settings cache read failed")
	} else if ok {
		return cached, nil
	}

	list, err := s.Store.ListByType(ctx, settingType)
	if err != nil {
		if ok := s.fallback(ctx, key, &cached, err); ok {
			return cached, nil
		}
		return nil, err
	}
	s.remember(ctx, key, list)
	return list, nil
}

// Create inserts a new setting.
func (s *Service) Create(ctx context.Context, in Setting) (Setting, error) {
	if s == nil || s.Store == nil {
		return Setting{}, ErrStoreUnavailable
	}
	in.ID = strings.TrimSpace(in.ID)
	in.Type = strings.TrimSpace(in.Type)
	if err := validateSetting(in); err != nil {
		return Setting{}, err
	}
	created, err := s.Store.Create(ctx, in)
	if err != nil {
		return Setting{}, err
	}
	s.written(ctx, OpCreate, created)
	return created, nil
}

// Update replaces the value of an existing setting.
func (s *Service) Update(ctx context.Context, id string, value json.RawMessage) (Setting, error) {
	if s == nil || s.Store == nil {
		return Setting{}, ErrStoreUnavailable
	}
	if err := validateValue(value); err != nil {
		return Setting{}, err
	}
	updated, err := s.Store.Update(ctx, strings.TrimSpace(id), value)
	if err != nil {
		return Setting{}, err
	}
	s.written(ctx, OpUpdate, updated)
	return updated, nil
}

// Upsert creates the setting or replaces the value of the existing row.
func (s *Service) Upsert(ctx context.Context, in Setting) (Setting, error) {
	if s == nil || s.Store == nil {
		return Setting{}, ErrStoreUnavailable
	}
	in.ID = strings.TrimSpace(in.ID)
	in.Type = strings.TrimSpace(in.Type)
	if err := validateSetting(in); err != nil {
		return Setting{}, err
	}
	saved, err := s.Store.Upsert(ctx, in)
	if err != nil {
		return Setting{}, err
	}
	s.written(ctx, OpUpsert, saved)
	return saved, nil
}

// Put stores value under id. The type is taken from settingType, or derived
// from the well-known ids; when neither is known the row must already exist.
func (s *Service) Put(ctx context.Context, id, settingType string, value json.RawMessage) (Setting, error) {
	settingType = strings.TrimSpace(settingType)
	if settingType == "" {
		settingType, _ = TypeForID(strings.TrimSpace(id))
	}
	if settingType == "" {
		return s.Update(ctx, id, value)
	}
	return s.Upsert(ctx, Setting{ID: id, Type: settingType, Value: value})
}

// Delete removes the setting with id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s == nil || s.Store == nil {
		return ErrStoreUnavailable
	}
	id = strings.TrimSpace(id)
	deleted, err := s.Store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Cache.Forget(ctx, idKey(id)); err != nil {
		s.log(ctx).Warn().Err(err).Str("id", id).Msg("settings cache forget failed")
	}
	s.written(ctx, OpDelete, deleted)
	return nil
}

func (s *Service) written(ctx context.Context, op string, setting Setting) {
	if op != OpDelete {
		s.remember(ctx, idKey(setting.ID), setting)
	}
	if err := s.Cache.Invalidate(ctx, typeKey(setting.Type)); err != nil {
		s.log(ctx).Warn().Err(err).Str("type", setting.Type).Msg("settings cache invalidate failed")
	}
	s.Metrics.SettingsWrite(setting.Type, op)
	if s.Notifier != nil {
		s.Notifier.Publish(Event{Op: op, ID: setting.ID, Type: setting.Type, At: s.now()})
	}
}

func (s *Service) remember(ctx context.Context, key string, v any) {
	if err := s.Cache.SetJSON(ctx, key, v); err != nil {
		s.log(ctx).Warn().Err(err).Str("key", key).Msg("settings cache write failed")
	}
}

func (s *Service) fallback(ctx context.Context, key string, dst any, cause error) bool {
	ok, err := s.Cache.LastKnown(ctx, key, dst)
	if err != nil || !ok {
		return false
	}
	s.Metrics.CacheFallback()
	s.log(ctx).Warn().Err(cause).Str("key", key).Msg("settings store unavailable, serving last cached copy")
	return true
}

func (s *Service) log(ctx context.Context) *zerolog.Logger {
	l := obs.WithRequestFields(ctx, s.Logger)
	return &l
}

func validateSetting(in Setting) error {
	var missing []string
	if in.ID == "" {
		missing = append(missing, "id")
	}
	if in.Type == "" {
		missing = append(missing, "setting_type")
	}
	if len(missing) > 0 {
		return common.Validation("missing required fields", map[string]any{"missing": missing})
	}
	return validateValue(in.Value)
}

func validateValue(value json.RawMessage) error {
	if len(value) == 0 || string(value) == "null" {
		return common.Validation("setting_value is required", nil)
	}
	if !json.Valid(value) {
		return common.Validation("setting_value must be valid JSON", nil)
	}
	return nil
}
