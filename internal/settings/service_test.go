package settings

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kodeit-calculator/internal/common"
	"github.com/noah-isme/kodeit-calculator/internal/obs"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Publish(evt Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
}

func (n *recordingNotifier) ops() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, evt := range n.events {
		out = append(out, evt.Op)
	}
	return out
}

func newTestService(t *testing.T) (*Service, *MemoryStore, *miniredis.Miniredis, *recordingNotifier) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewMemoryStore()
	notifier := &recordingNotifier{}
	svc := &Service{
		Store:    store,
		Cache:    NewCache(client, time.Minute),
		Notifier: notifier,
		Metrics:  obs.NewDomainMetrics("test", prometheus.NewRegistry()),
	}
	return svc, store, mr, notifier
}

func TestServiceCreateAndGet(t *testing.T) {
	svc, _, mr, notifier := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, Setting{ID: PricingID, Type: TypePricing, Value: json.RawMessage(`{"a":1}`)})
	require.NoError(t, err)
	require.Equal(t, PricingID, created.ID)
	require.True(t, mr.Exists(idKey(PricingID)))

	got, err := svc.GetByID(ctx, PricingID)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(got.Value))
	require.Equal(t, []string{OpCreate}, notifier.ops())
	require.Equal(t, 1.0, testutil.ToFloat64(svc.Metrics.SettingsWrites.WithLabelValues(TypePricing, OpCreate)))

	_, err = svc.Create(ctx, Setting{ID: PricingID, Type: TypePricing, Value: json.RawMessage(`{}`)})
	require.ErrorIs(t, err, ErrConflict)
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), Setting{Value: json.RawMessage(`{}`)})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
	require.Equal(t, map[string]any{"missing": []string{"id", "setting_type"}}, appErr.Details)

	_, err = svc.Create(context.Background(), Setting{ID: "x", Type: "y"})
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "setting_value is required", appErr.Message)
}

func TestServiceGetMissing(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.GetByID(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceReadThroughCache(t *testing.T) {
	svc, store, mr, _ := newTestService(t)
	ctx := context.Background()

	_, err := store.Create(ctx, Setting{ID: CurriculumID, Type: TypeCurriculum, Value: json.RawMessage(`[1]`)})
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, CurriculumID)
	require.NoError(t, err)

	// A write behind the service's back is hidden until the entry expires.
	_, err = store.Update(ctx, CurriculumID, json.RawMessage(`[2]`))
	require.NoError(t, err)
	got, err := svc.GetByID(ctx, CurriculumID)
	require.NoError(t, err)
	require.JSONEq(t, `[1]`, string(got.Value))

	mr.FastForward(2 * time.Minute)
	got, err = svc.GetByID(ctx, CurriculumID)
	require.NoError(t, err)
	require.JSONEq(t, `[2]`, string(got.Value))
}

func TestServiceFallsBackToLastKnownCopy(t *testing.T) {
	svc, store, mr, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, Setting{ID: PricingID, Type: TypePricing, Value: json.RawMessage(`{"v":1}`)})
	require.NoError(t, err)
	list, err := svc.ListByType(ctx, TypePricing)
	require.NoError(t, err)
	require.Len(t, list, 1)

	mr.FastForward(2 * time.Minute)
	store.FailReads = errors.New("connection refused")

	got, err := svc.GetByID(ctx, PricingID)
	require.NoError(t, err)
	require.JSONEq(t, `{"v":1}`, string(got.Value))

	list, err = svc.ListByType(ctx, TypePricing)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 2.0, testutil.ToFloat64(svc.Metrics.CacheFallbacks))

	_, err = svc.GetByID(ctx, "never-cached")
	require.EqualError(t, err, "connection refused")
}

func TestServiceWritesInvalidateTypeList(t *testing.T) {
	svc, _, _, notifier := newTestService(t)
	ctx := context.Background()

	list, err := svc.ListByType(ctx, TypeStructure)
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = svc.Put(ctx, StructureID, "", json.RawMessage(`{"title":"x"}`))
	require.NoError(t, err)
	list, err = svc.ListByType(ctx, TypeStructure)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, StructureID))
	list, err = svc.ListByType(ctx, TypeStructure)
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = svc.GetByID(ctx, StructureID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, StructureID), ErrNotFound)
	require.Equal(t, []string{OpUpsert, OpDelete}, notifier.ops())
}

func TestServicePutUnknownIDRequiresExistingRow(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.Put(context.Background(), "custom", "", json.RawMessage(`{}`))
	require.ErrorIs(t, err, ErrNotFound)

	saved, err := svc.Put(context.Background(), "custom", "misc", json.RawMessage(`{}`))
	require.NoError(t, err)
	require.Equal(t, "misc", saved.Type)
}

func TestServiceWithoutCache(t *testing.T) {
	svc := &Service{Store: NewMemoryStore()}
	ctx := context.Background()
	_, err := svc.Create(ctx, Setting{ID: "a", Type: "t", Value: json.RawMessage(`1`)})
	require.NoError(t, err)
	got, err := svc.GetByID(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "t", got.Type)
}
