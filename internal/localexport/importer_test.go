package localexport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kodeit-calculator/internal/catalog"
	"github.com/noah-isme/kodeit-calculator/internal/common"
	"github.com/noah-isme/kodeit-calculator/internal/localexport"
	"github.com/noah-isme/kodeit-calculator/internal/pricing"
	"github.com/noah-isme/kodeit-calculator/internal/settings"
)

func newImporter(t *testing.T) (*localexport.Importer, *catalog.Service) {
	t.Helper()
	svc := catalog.NewService(catalog.ServiceConfig{
		Settings: &settings.Service{Store: settings.NewMemoryStore()},
	})
	return &localexport.Importer{Target: svc}, svc
}

func TestImportStringAndObjectValues(t *testing.T) {
	im, svc := newImporter(t)
	ctx := context.Background()

	cfg := pricing.DefaultConfig()
	cfg.TeacherGuide.Print = 42
	pricingDoc, err := json.Marshal(cfg)
	require.NoError(t, err)
	curriculumDoc := `[{"id":"level1","name":"Level 1","books":[{"id":"b1","name":"Legacy","units":["Unit A"],"lessons":["One"]}]}]`
	export, err := json.Marshal(map[string]any{
		localexport.KeyPricing:    string(pricingDoc),
		localexport.KeyCurriculum: json.RawMessage(curriculumDoc),
		"unrelated":               "ignored",
	})
	require.NoError(t, err)

	report, err := im.Import(ctx, strings.NewReader(string(export)))
	require.NoError(t, err)
	require.Equal(t, []string{localexport.KeyPricing, localexport.KeyCurriculum}, report.Migrated)
	require.Equal(t, []string{localexport.KeyStructure}, report.Skipped)

	got, err := svc.Pricing(ctx)
	require.NoError(t, err)
	require.Equal(t, 42.0, got.TeacherGuide.Print)

	levels, err := svc.Curriculum(ctx)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	require.Equal(t, "Unit A", levels[0].Books[0].Units[0].Name)
}

func TestImportStopsAtFirstFailure(t *testing.T) {
	im, svc := newImporter(t)
	ctx := context.Background()

	export := `{
		"kodeit_admin_pricing": "{\"studentBook\":{\"digital\":-5}}",
		"kodeit_admin_curriculum_structure": {"title":"Pathway"}
	}`
	report, err := im.Import(ctx, strings.NewReader(export))
	require.ErrorContains(t, err, localexport.KeyPricing)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	require.Empty(t, report.Migrated)

	st, err := svc.Structure(ctx)
	require.NoError(t, err)
	require.NotEqual(t, "Pathway", st.Title)
}

func TestImportRejectsBadExports(t *testing.T) {
	im, _ := newImporter(t)
	ctx := context.Background()

	_, err := im.Import(ctx, strings.NewReader(`[1,2]`))
	require.Error(t, err)

	_, err = im.Import(ctx, strings.NewReader(`{"kodeit_admin_curriculum":"{\"levels\":[]}"}`))
	require.ErrorContains(t, err, "array of levels")

	_, err = im.Import(ctx, strings.NewReader(`{"kodeit_admin_curriculum":"not json"}`))
	require.ErrorContains(t, err, "not valid JSON")

	report, err := im.Import(ctx, strings.NewReader(`{"kodeit_admin_pricing":null}`))
	require.NoError(t, err)
	require.Len(t, report.Skipped, 3)

	_, err = (&localexport.Importer{}).Import(ctx, strings.NewReader(`{}`))
	require.Error(t, err)
}
