package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/kodeit-calculator/internal/common"
	"github.com/noah-isme/kodeit-calculator/internal/curriculum"
	"github.com/noah-isme/kodeit-calculator/internal/obs"
	"github.com/noah-isme/kodeit-calculator/internal/pricing"
	"github.com/noah-isme/kodeit-calculator/internal/seed"
	"github.com/noah-isme/kodeit-calculator/internal/settings"
)

// Import kinds accepted by Service.Import.
const (
	KindCSV  = "csv"
	KindXLSX = "xlsx"
)

// SettingsService is the slice of the settings service the catalog reads and
// writes through.
type SettingsService interface {
	GetByID(ctx context.Context, id string) (settings.Setting, error)
	Upsert(ctx context.Context, in settings.Setting) (settings.Setting, error)
}

// Locker serialises curriculum edits across processes.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

const (
	curriculumLockKey = "curriculum"
	curriculumLockTTL = 15 * time.Second
)

// Service is the typed view of the pricing, curriculum and structure blobs.
type Service struct {
	settings SettingsService
	defaults seed.Defaults
	metrics  *obs.DomainMetrics
	logger   zerolog.Logger
	newID    func() string
	locker   Locker

	// mu serialises curriculum read-modify-write cycles within a process.
	mu sync.Mutex
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Settings SettingsService
	// Defaults replaces the embedded seed defaults when set.
	Defaults *seed.Defaults
	Metrics  *obs.DomainMetrics
	Logger   zerolog.Logger
	NewID    func() string
	// Locker is optional; without it edits are only serialised in-process.
	Locker Locker
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	defaults := seed.MustDefaults()
	if cfg.Defaults != nil {
		defaults = *cfg.Defaults
	}
	return &Service{
		settings: cfg.Settings,
		defaults: defaults,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		newID:    cfg.NewID,
		locker:   cfg.Locker,
	}
}

// Pricing returns the stored pricing merged over the defaults, so a stored
// document missing a table or tier keeps the default value for it.
func (s *Service) Pricing(ctx context.Context) (pricing.Config, error) {
	cfg := s.defaults.Pricing
	raw, err := s.load(ctx, settings.PricingID)
	if err != nil || raw == nil {
		return cfg, err
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		s.log(ctx).Warn().Err(err).Msg("stored pricing is malformed, using defaults")
		return s.defaults.Pricing, nil
	}
	return cfg, nil
}

// Curriculum returns the stored levels in canonical form, or the default
// levels when nothing is stored.
func (s *Service) Curriculum(ctx context.Context) ([]curriculum.Level, error) {
	raw, err := s.load(ctx, settings.CurriculumID)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return curriculum.Clone(s.defaults.Curriculum), nil
	}
	levels, err := curriculum.NormalizeJSON(raw)
	if err != nil {
		s.log(ctx).Warn().Err(err).Msg("stored curriculum is malformed, using defaults")
		return curriculum.Clone(s.defaults.Curriculum), nil
	}
	return levels, nil
}

// Structure returns the stored curriculum structure or the default one.
func (s *Service) Structure(ctx context.Context) (curriculum.Structure, error) {
	raw, err := s.load(ctx, settings.StructureID)
	if err != nil || raw == nil {
		return s.defaults.Structure, err
	}
	var out curriculum.Structure
	if err := json.Unmarshal(raw, &out); err != nil {
		s.log(ctx).Warn().Err(err).Msg("stored curriculum structure is malformed, using defaults")
		return s.defaults.Structure, nil
	}
	return out, nil
}

// SavePricing validates doc against the pricing schema and stores it.
func (s *Service) SavePricing(ctx context.Context, doc []byte) (pricing.Config, error) {
	cfg, err := pricing.DecodeConfig(doc)
	if err != nil {
		var schemaErr *pricing.SchemaError
		if errors.As(err, &schemaErr) {
			return pricing.Config{}, common.Validation("invalid pricing config", map[string]any{"problems": schemaErr.Problems})
		}
		return pricing.Config{}, err
	}
	if err := s.store(ctx, settings.PricingID, settings.TypePricing, cfg); err != nil {
		return pricing.Config{}, err
	}
	return cfg, nil
}

// SaveCurriculum stores levels in canonical form.
func (s *Service) SaveCurriculum(ctx context.Context, levels []curriculum.Level) ([]curriculum.Level, error) {
	levels = curriculum.Canonicalize(levels)
	err := s.locked(ctx, func(ctx context.Context) error {
		return s.saveLevels(ctx, levels)
	})
	if err != nil {
		return nil, err
	}
	return levels, nil
}

// SaveStructure stores the curriculum structure.
func (s *Service) SaveStructure(ctx context.Context, st curriculum.Structure) (curriculum.Structure, error) {
	if strings.TrimSpace(st.Title) == "" {
		return curriculum.Structure{}, common.Validation("missing required fields", map[string]any{"missing": []string{"title"}})
	}
	if st.Stages == nil {
		st.Stages = []curriculum.Stage{}
	}
	if st.Notes == nil {
		st.Notes = []curriculum.Note{}
	}
	if err := s.store(ctx, settings.StructureID, settings.TypeStructure, st); err != nil {
		return curriculum.Structure{}, err
	}
	return st, nil
}

// AddBook appends a book to levelID and stores the curriculum.
func (s *Service) AddBook(ctx context.Context, levelID string, draft curriculum.BookDraft) (curriculum.Book, error) {
	if err := common.ValidateStruct(draft); err != nil {
		return curriculum.Book{}, err
	}
	var added curriculum.Book
	err := s.edit(ctx, func(levels []curriculum.Level) ([]curriculum.Level, error) {
		out, book, err := curriculum.AddBook(levels, levelID, draft, s.newID)
		added = book
		return out, err
	})
	return added, err
}

// UpdateBook patches bookID and stores the curriculum.
func (s *Service) UpdateBook(ctx context.Context, bookID string, patch curriculum.BookPatch) (curriculum.Book, error) {
	if err := common.ValidateStruct(patch); err != nil {
		return curriculum.Book{}, err
	}
	var updated curriculum.Book
	err := s.edit(ctx, func(levels []curriculum.Level) ([]curriculum.Level, error) {
		out, book, err := curriculum.UpdateBook(levels, bookID, patch)
		updated = book
		return out, err
	})
	return updated, err
}

// DeleteBook removes bookID and stores the curriculum.
func (s *Service) DeleteBook(ctx context.Context, bookID string) error {
	return s.edit(ctx, func(levels []curriculum.Level) ([]curriculum.Level, error) {
		return curriculum.DeleteBook(levels, bookID)
	})
}

// ClearBooks removes every book while keeping the levels.
func (s *Service) ClearBooks(ctx context.Context) error {
	return s.edit(ctx, func(levels []curriculum.Level) ([]curriculum.Level, error) {
		return curriculum.ClearBooks(levels), nil
	})
}

// Import parses r as kind and replaces the books of the stored curriculum.
// The document is fully validated before anything is written, so a failed
// import leaves the stored curriculum as it was.
func (s *Service) Import(ctx context.Context, kind string, r io.Reader) (curriculum.ImportResult, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	var parse func(io.Reader, []curriculum.Level, curriculum.ImportOptions) (curriculum.ImportResult, error)
	switch kind {
	case KindCSV:
		parse = curriculum.ImportCSV
	case KindXLSX:
		parse = curriculum.ImportXLSX
	default:
		return curriculum.ImportResult{}, common.BadRequest("unsupported import format, use csv or xlsx", nil)
	}

	var result curriculum.ImportResult
	err := s.locked(ctx, func(ctx context.Context) error {
		levels, err := s.Curriculum(ctx)
		if err != nil {
			s.metrics.Import(kind, "error")
			return err
		}
		result, err = parse(r, levels, curriculum.ImportOptions{NewID: s.newID})
		if err != nil {
			s.metrics.Import(kind, "invalid")
			var verr *curriculum.ValidationError
			if errors.As(err, &verr) {
				return common.Validation("missing required headers", map[string]any{"missing": verr.Missing})
			}
			return common.BadRequest("could not read import file", err)
		}
		if err := s.saveLevels(ctx, result.Levels); err != nil {
			s.metrics.Import(kind, "error")
			return err
		}
		return nil
	})
	if err != nil {
		return curriculum.ImportResult{}, err
	}
	s.metrics.Import(kind, "success")
	s.log(ctx).Info().
		Str("kind", kind).
		Int("books", result.BooksImported).
		Int("levels_in_file", result.LevelsInFile).
		Int("skipped_rows", result.SkippedRows).
		Strs("unmatched_levels", result.UnmatchedLevels).
		Msg("curriculum imported")
	return result, nil
}

func (s *Service) edit(ctx context.Context, fn func([]curriculum.Level) ([]curriculum.Level, error)) error {
	return s.locked(ctx, func(ctx context.Context) error {
		levels, err := s.Curriculum(ctx)
		if err != nil {
			return err
		}
		out, err := fn(levels)
		if err != nil {
			return mapEditError(err)
		}
		return s.saveLevels(ctx, out)
	})
}

// locked runs fn under the process mutex and, when configured, the
// distributed curriculum lock.
func (s *Service) locked(ctx context.Context, fn func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithLock(ctx, curriculumLockKey, curriculumLockTTL, fn)
}

func (s *Service) saveLevels(ctx context.Context, levels []curriculum.Level) error {
	return s.store(ctx, settings.CurriculumID, settings.TypeCurriculum, levels)
}

func (s *Service) load(ctx context.Context, id string) (json.RawMessage, error) {
	if s == nil || s.settings == nil {
		return nil, settings.ErrStoreUnavailable
	}
	setting, err := s.settings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, settings.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	return setting.Value, nil
}

func (s *Service) store(ctx context.Context, id, settingType string, v any) error {
	if s == nil || s.settings == nil {
		return settings.ErrStoreUnavailable
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}
	if _, err := s.settings.Upsert(ctx, settings.Setting{ID: id, Type: settingType, Value: data}); err != nil {
		return fmt.Errorf("store %s: %w", id, err)
	}
	return nil
}

func (s *Service) log(ctx context.Context) *zerolog.Logger {
	l := obs.WithRequestFields(ctx, s.logger)
	return &l
}

func mapEditError(err error) error {
	switch {
	case errors.Is(err, curriculum.ErrLevelNotFound):
		return common.NotFound("level not found")
	case errors.Is(err, curriculum.ErrBookNotFound):
		return common.NotFound("book not found")
	case errors.Is(err, curriculum.ErrBookName):
		return common.Validation("book name is required", map[string]any{"missing": []string{"name"}})
	default:
		return err
	}
}
