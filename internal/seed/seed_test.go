package seed

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kodeit-calculator/internal/pricing"
	"github.com/noah-isme/kodeit-calculator/internal/settings"
)

type fakeAdmins struct {
	calls  int
	exists bool
}

func (f *fakeAdmins) EnsureAdmin(_ context.Context, _, _ string) (bool, error) {
	f.calls++
	if f.exists {
		return false, nil
	}
	f.exists = true
	return true, nil
}

func TestDefaultsMatchBuiltInPricing(t *testing.T) {
	d, err := LoadDefaults()
	require.NoError(t, err)
	require.Equal(t, pricing.DefaultConfig(), d.Pricing)
	require.Len(t, d.Curriculum, 3)
	require.Equal(t, "Level 1 (Ages 3-4)", d.Curriculum[0].Name)
	require.NotNil(t, d.Curriculum[0].Books)
	require.Len(t, d.Structure.Stages, 3)
	require.Len(t, d.Structure.Notes, 4)
	require.Equal(t, "GraduationCap", d.Structure.Notes[3].Icon)

	docs, err := d.Documents()
	require.NoError(t, err)
	require.NoError(t, pricing.ValidateDocument(docs[settings.PricingID]))
}

func TestApplyInstallsMissingDefaultsOnce(t *testing.T) {
	store := settings.NewMemoryStore()
	ctx := context.Background()
	_, err := store.Create(ctx, settings.Setting{ID: settings.PricingID, Type: settings.TypePricing, Value: json.RawMessage(`{"custom":true}`)})
	require.NoError(t, err)

	admins := &fakeAdmins{}
	seeder := &Seeder{Settings: store, Admins: admins, AdminEmail: "admin@kodeit.test", AdminPassword: "secret"}

	report, err := seeder.Apply(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{settings.CurriculumID, settings.StructureID}, report.Created)
	require.Equal(t, []string{settings.PricingID}, report.Existing)
	require.True(t, report.AdminCreated)

	kept, err := store.GetByID(ctx, settings.PricingID)
	require.NoError(t, err)
	require.JSONEq(t, `{"custom":true}`, string(kept.Value))

	report, err = seeder.Apply(ctx)
	require.NoError(t, err)
	require.Empty(t, report.Created)
	require.Len(t, report.Existing, 3)
	require.False(t, report.AdminCreated)
	require.Equal(t, 2, admins.calls)
}

func TestApplySkipsAdminWithoutCredentials(t *testing.T) {
	admins := &fakeAdmins{}
	seeder := &Seeder{Settings: settings.NewMemoryStore(), Admins: admins}
	_, err := seeder.Apply(context.Background())
	require.NoError(t, err)
	require.Zero(t, admins.calls)
}
