package quote

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kodeit-calculator/internal/common"
	"github.com/noah-isme/kodeit-calculator/internal/curriculum"
	"github.com/noah-isme/kodeit-calculator/internal/obs"
	"github.com/noah-isme/kodeit-calculator/internal/pricing"
)

type fakeCatalog struct {
	pricing pricing.Config
	levels  []curriculum.Level
	err     error
}

func (f fakeCatalog) Pricing(context.Context) (pricing.Config, error) { return f.pricing, f.err }

func (f fakeCatalog) Curriculum(context.Context) ([]curriculum.Level, error) { return f.levels, f.err }

func testCatalog() fakeCatalog {
	return fakeCatalog{
		pricing: pricing.DefaultConfig(),
		levels: []curriculum.Level{{
			ID:   "level1",
			Name: "Level 1",
			Books: []curriculum.Book{
				{ID: "s1", Name: "Explorers"},
				{ID: "p1", Name: "Explorers Practice", IsPracticeBook: true},
				{ID: "g1", Name: "Explorers - Teacher Guide", IsTeacherGuide: true},
			},
		}},
	}
}

func newTestService(t *testing.T, cat Catalog) *Service {
	t.Helper()
	return &Service{Catalog: cat, Metrics: obs.NewDomainMetrics("test", prometheus.NewRegistry())}
}

func sampleRequest() Request {
	return Request{
		SelectedBooks: []pricing.SelectedItem{
			{BookID: "s1", Quantity: 2},
			{BookID: "p1", Quantity: 1},
		},
		SelectedGuides: []pricing.SelectedItem{{BookID: "g1", Quantity: 1}},
		Format:         "digital",
		Branding:       "cobranded",
		Currency:       "eur",
	}
}

func TestCalculateConvertsAmounts(t *testing.T) {
	svc := newTestService(t, testCatalog())

	q, err := svc.Calculate(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Len(t, q.Items, 4)
	require.Equal(t, "Student Book - Explorers", q.Items[0].Name)
	require.Equal(t, pricing.ItemBranding, q.Items[3].Type)
	require.InDelta(t, 720, q.Subtotal, 1e-9)
	require.InDelta(t, 792, q.Total, 1e-9)
	require.Equal(t, "EUR", q.Currency)
	require.Equal(t, "USD", q.BaseCurrency)
	require.InDelta(t, 673.2, q.ConvertedTotal, 1e-9)
	require.InDelta(t, 136, q.Items[0].ConvertedSubtotal, 1e-9)
	require.Equal(t, "€673.20", q.FormattedTotal)
	require.Equal(t, 1.0, testutil.ToFloat64(svc.Metrics.QuotesTotal.WithLabelValues("digital", "cobranded")))
}

func TestCalculateDefaultsToBaseCurrency(t *testing.T) {
	svc := newTestService(t, testCatalog())
	req := sampleRequest()
	req.Currency = ""
	req.Branding = "Kodeit"

	q, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "USD", q.Currency)
	require.Len(t, q.Items, 3)
	require.Equal(t, "$720.00", q.FormattedTotal)
}

func TestCalculateRejectsBadInput(t *testing.T) {
	svc := newTestService(t, testCatalog())
	ctx := context.Background()

	req := sampleRequest()
	req.Currency = "XYZ"
	_, err := svc.Calculate(ctx, req)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	require.Equal(t, "unsupported currency", appErr.Message)

	req = sampleRequest()
	req.Format = "vinyl"
	req.SelectedBooks[0].Quantity = -1
	_, err = svc.Calculate(ctx, req)
	require.ErrorAs(t, err, &appErr)
	fields := appErr.Details.(map[string]any)["fields"].(map[string]string)
	require.Contains(t, fields, "format")
	require.Contains(t, fields, "quantity")
}

func TestCalculatePropagatesCatalogErrors(t *testing.T) {
	cat := testCatalog()
	cat.err = errors.New("store down")
	_, err := newTestService(t, cat).Calculate(context.Background(), sampleRequest())
	require.ErrorContains(t, err, "store down")
}
