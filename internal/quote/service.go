// Package quote prices a book selection against the stored pricing and
// curriculum and converts the result into the requested currency.
package quote

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/kodeit-calculator/internal/common"
	"github.com/noah-isme/kodeit-calculator/internal/currency"
	"github.com/noah-isme/kodeit-calculator/internal/curriculum"
	"github.com/noah-isme/kodeit-calculator/internal/obs"
	"github.com/noah-isme/kodeit-calculator/internal/pricing"
)

// Catalog provides the pricing and curriculum snapshot a quote is computed on.
type Catalog interface {
	Pricing(ctx context.Context) (pricing.Config, error)
	Curriculum(ctx context.Context) ([]curriculum.Level, error)
}

// Request is the body of POST /api/quotes.
type Request struct {
	SelectedBooks  []pricing.SelectedItem `json:"selectedBooks" validate:"dive"`
	SelectedGuides []pricing.SelectedItem `json:"selectedGuides" validate:"dive"`
	Format         string                 `json:"format" validate:"required,oneof=digital print both"`
	Branding       string                 `json:"branding" validate:"required,oneof=kodeit cobranded whitelabeled"`
	Currency       string                 `json:"currency" validate:"omitempty,len=3,alpha"`
}

// Line is a breakdown item with its amounts in the quote currency.
type Line struct {
	pricing.BreakdownItem
	ConvertedUnitPrice float64 `json:"convertedUnitPrice"`
	ConvertedSubtotal  float64 `json:"convertedSubtotal"`
}

// Quote is the priced selection. Subtotal and Total are in the base currency.
type Quote struct {
	Items             []Line  `json:"items"`
	Format            string  `json:"format"`
	Branding          string  `json:"branding"`
	Subtotal          float64 `json:"subtotal"`
	Total             float64 `json:"total"`
	BaseCurrency      string  `json:"baseCurrency"`
	Currency          string  `json:"currency"`
	Rate              float64 `json:"rate"`
	ConvertedSubtotal float64 `json:"convertedSubtotal"`
	ConvertedTotal    float64 `json:"convertedTotal"`
	FormattedTotal    string  `json:"formattedTotal"`
}

// Service computes quotes.
type Service struct {
	Catalog Catalog
	Metrics *obs.DomainMetrics
	Logger  zerolog.Logger
}

// Calculate validates req, prices it and converts every amount.
func (s *Service) Calculate(ctx context.Context, req Request) (Quote, error) {
	req.Format = strings.ToLower(strings.TrimSpace(req.Format))
	req.Branding = strings.ToLower(strings.TrimSpace(req.Branding))
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = currency.Base
	}
	if err := common.ValidateStruct(req); err != nil {
		return Quote{}, err
	}
	rate, ok := currency.Rate(req.Currency)
	if !ok {
		return Quote{}, common.Validation("unsupported currency", map[string]any{
			"currency":  req.Currency,
			"supported": currency.Codes(),
		})
	}

	cfg, err := s.Catalog.Pricing(ctx)
	if err != nil {
		return Quote{}, err
	}
	levels, err := s.Catalog.Curriculum(ctx)
	if err != nil {
		return Quote{}, err
	}
	format, _ := pricing.ParseFormat(req.Format)
	branding, _ := pricing.ParseBranding(req.Branding)

	breakdown := pricing.Calculate(pricing.Input{
		SelectedBooks:  req.SelectedBooks,
		SelectedGuides: req.SelectedGuides,
		Format:         format,
		Branding:       branding,
		Pricing:        cfg,
		Curriculum:     levels,
	})

	out := Quote{
		Items:             make([]Line, 0, len(breakdown.Items)),
		Format:            string(format),
		Branding:          string(branding),
		Subtotal:          breakdown.Subtotal,
		Total:             breakdown.Total,
		BaseCurrency:      currency.Base,
		Currency:          req.Currency,
		Rate:              rate,
		ConvertedSubtotal: currency.Convert(breakdown.Subtotal, rate),
		ConvertedTotal:    currency.Convert(breakdown.Total, rate),
	}
	for _, item := range breakdown.Items {
		out.Items = append(out.Items, Line{
			BreakdownItem:      item,
			ConvertedUnitPrice: currency.Convert(item.UnitPrice, rate),
			ConvertedSubtotal:  currency.Convert(item.Subtotal, rate),
		})
	}
	if out.FormattedTotal, err = currency.Format(out.ConvertedTotal, req.Currency); err != nil {
		return Quote{}, fmt.Errorf("format total: %w", err)
	}

	s.Metrics.Quote(out.Format, out.Branding, out.Total)
	l := obs.WithRequestFields(ctx, s.Logger)
	l.Debug().
		Str("format", out.Format).
		Str("branding", out.Branding).
		Str("currency", out.Currency).
		Int("items", len(out.Items)).
		Float64("total", out.Total).
		Msg("quote calculated")
	return out, nil
}

