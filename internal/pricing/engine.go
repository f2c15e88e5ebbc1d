// Package pricing computes itemized quotes for a curriculum selection.
package pricing

import (
	"github.com/noah-isme/kodeit-calculator/internal/curriculum"
)

// Format is the delivery mode driving unit price lookup.
type Format string

const (
	FormatDigital Format = "digital"
	FormatPrint   Format = "print"
	FormatBoth    Format = "both"
)

// Branding is the order-wide price multiplier tier.
type Branding string

const (
	BrandingKodeit       Branding = "kodeit"
	BrandingCobranded    Branding = "cobranded"
	BrandingWhitelabeled Branding = "whitelabeled"
)

// ItemType tags a breakdown line.
type ItemType string

const (
	ItemBook     ItemType = "book"
	ItemGuide    ItemType = "guide"
	ItemBranding ItemType = "branding"
)

// PriceTable holds one unit price per format.
type PriceTable struct {
	Digital float64 `json:"digital" yaml:"digital"`
	Print   float64 `json:"print" yaml:"print"`
	Both    float64 `json:"both" yaml:"both"`
}

// Price returns the unit price for f, or 0 for an unknown format.
func (t PriceTable) Price(f Format) float64 {
	switch f {
	case FormatDigital:
		return t.Digital
	case FormatPrint:
		return t.Print
	case FormatBoth:
		return t.Both
	default:
		return 0
	}
}

// BrandingMultipliers maps each tier to its multiplier.
type BrandingMultipliers struct {
	Kodeit       float64 `json:"kodeit" yaml:"kodeit"`
	Cobranded    float64 `json:"cobranded" yaml:"cobranded"`
	Whitelabeled float64 `json:"whitelabeled" yaml:"whitelabeled"`
}

// Multiplier returns the factor for b. Unknown tiers price as 1.
func (m BrandingMultipliers) Multiplier(b Branding) float64 {
	switch b {
	case BrandingKodeit:
		return m.Kodeit
	case BrandingCobranded:
		return m.Cobranded
	case BrandingWhitelabeled:
		return m.Whitelabeled
	default:
		return 1
	}
}

// Config is the pricing table stored under the pricing settings blob.
type Config struct {
	StudentBook  PriceTable          `json:"studentBook" yaml:"studentBook"`
	PracticeBook PriceTable          `json:"practiceBook" yaml:"practiceBook"`
	TeacherGuide PriceTable          `json:"teacherGuide" yaml:"teacherGuide"`
	Branding     BrandingMultipliers `json:"branding" yaml:"branding"`
}

// SelectedItem is one requested catalog line.
type SelectedItem struct {
	Type     ItemType `json:"type"`
	BookID   string   `json:"bookId" validate:"required"`
	LevelID  string   `json:"levelId"`
	Quantity int      `json:"quantity" validate:"gte=0"`
}

// BreakdownItem is one priced line of a quote.
type BreakdownItem struct {
	Name      string   `json:"name"`
	Type      ItemType `json:"type"`
	Quantity  int      `json:"quantity"`
	UnitPrice float64  `json:"unitPrice"`
	Subtotal  float64  `json:"subtotal"`
	BookID    string   `json:"bookId,omitempty"`
}

// Breakdown is the result of Calculate.
type Breakdown struct {
	Items    []BreakdownItem `json:"items"`
	Subtotal float64         `json:"subtotal"`
	Total    float64         `json:"total"`
}

// Input bundles everything a calculation reads.
type Input struct {
	SelectedBooks  []SelectedItem
	SelectedGuides []SelectedItem
	Format         Format
	Branding       Branding
	Pricing        Config
	Curriculum     []curriculum.Level
}

// Calculate prices the selection. Book lines come first in input order, then
// guide lines, then at most one branding line. Unknown book ids price as
// student books named after the id. Guide selections that do not resolve to a
// teacher guide are skipped.
func Calculate(in Input) Breakdown {
	items := make([]BreakdownItem, 0, len(in.SelectedBooks)+len(in.SelectedGuides)+1)
	var subtotal float64

	for _, sel := range in.SelectedBooks {
		book, found := curriculum.FindBook(in.Curriculum, sel.BookID)
		name := sel.BookID
		if found {
			name = book.Name
		}
		label := "Student Book"
		unitPrice := in.Pricing.StudentBook.Price(in.Format)
		if book.IsPracticeBook {
			label = "Practice Book"
			unitPrice = in.Pricing.PracticeBook.Price(in.Format)
		}
		line := float64(sel.Quantity) * unitPrice
		items = append(items, BreakdownItem{
			Name:      label + " - " + name,
			Type:      ItemBook,
			Quantity:  sel.Quantity,
			UnitPrice: unitPrice,
			Subtotal:  line,
			BookID:    sel.BookID,
		})
		subtotal += line
	}

	for _, sel := range in.SelectedGuides {
		book, found := curriculum.FindBook(in.Curriculum, sel.BookID)
		if !found || !book.IsTeacherGuide {
			continue
		}
		unitPrice := in.Pricing.TeacherGuide.Price(in.Format)
		line := float64(sel.Quantity) * unitPrice
		items = append(items, BreakdownItem{
			Name:      book.Name,
			Type:      ItemGuide,
			Quantity:  sel.Quantity,
			UnitPrice: unitPrice,
			Subtotal:  line,
			BookID:    sel.BookID,
		})
		subtotal += line
	}

	multiplier := in.Pricing.Branding.Multiplier(in.Branding)
	if cost := subtotal * (multiplier - 1); cost > 0 {
		items = append(items, BreakdownItem{
			Name:      brandingName(in.Branding),
			Type:      ItemBranding,
			Quantity:  1,
			UnitPrice: cost,
			Subtotal:  cost,
		})
	}

	return Breakdown{Items: items, Subtotal: subtotal, Total: subtotal * multiplier}
}

func brandingName(b Branding) string {
	if b == BrandingCobranded {
		return "Co-branded"
	}
	return "White-labeled"
}

// DefaultConfig is the price table installed on a fresh deployment.
func DefaultConfig() Config {
	return Config{
		StudentBook:  PriceTable{Digital: 80, Print: 100, Both: 180},
		PracticeBook: PriceTable{Digital: 60, Print: 80, Both: 140},
		TeacherGuide: PriceTable{Digital: 500, Print: 500, Both: 1000},
		Branding:     BrandingMultipliers{Kodeit: 1.0, Cobranded: 1.1, Whitelabeled: 1.25},
	}
}

// ParseFormat validates a format value.
func ParseFormat(v string) (Format, bool) {
	switch f := Format(v); f {
	case FormatDigital, FormatPrint, FormatBoth:
		return f, true
	default:
		return "", false
	}
}

// ParseBranding validates a branding tier.
func ParseBranding(v string) (Branding, bool) {
	switch b := Branding(v); b {
	case BrandingKodeit, BrandingCobranded, BrandingWhitelabeled:
		return b, true
	default:
		return "", false
	}
}
