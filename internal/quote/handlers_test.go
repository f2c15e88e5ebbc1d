package quote

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func post(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/quotes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	return rec
}

func TestCreateQuote(t *testing.T) {
	h := &Handler{Service: newTestService(t, testCatalog())}

	rec := post(t, h, `{"selectedBooks":[{"bookId":"s1","quantity":3}],"selectedGuides":[],"format":"print","branding":"whitelabeled","currency":"GBP"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Data Quote `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.InDelta(t, 375, body.Data.Total, 1e-9)
	require.Equal(t, "£273.75", body.Data.FormattedTotal)
	require.Equal(t, "White-labeled", body.Data.Items[1].Name)

	rec = post(t, h, `{"format":"print","branding":"kodeit","currency":"BTC"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"supported"`)

	rec = post(t, h, `{"format":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateQuoteRequiresService(t *testing.T) {
	rec := post(t, &Handler{}, `{}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCurrencies(t *testing.T) {
	rec := httptest.NewRecorder()
	(&Handler{}).Currencies(rec, httptest.NewRequest(http.MethodGet, "/api/quotes/currencies", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"JPY":110`)
	require.Contains(t, rec.Body.String(), `"base":"USD"`)
}
