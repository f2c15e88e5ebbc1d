package audit_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kodeit-calculator/internal/audit"
	"github.com/noah-isme/kodeit-calculator/internal/platform/database/dbtest"
)

func TestPostgresStore(t *testing.T) {
	store := audit.NewPostgresStore(dbtest.Postgres(t))
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, audit.Entry{
		ActorID: "u-1", Action: "PUT /api/pricing", Resource: "pricing",
		Method: "PUT", Path: "/api/pricing", Status: 200,
		Metadata: json.RawMessage(`{"query":"x=1"}`),
	}))
	require.NoError(t, store.Insert(ctx, audit.Entry{
		Action: "POST /api/curriculum/import", Resource: "curriculum.import",
		Method: "POST", Path: "/api/curriculum/import", Status: 400,
	}))

	entries, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "curriculum.import", entries[0].Resource)
	require.Empty(t, entries[0].ActorID)
	require.Nil(t, entries[0].Metadata)
	require.JSONEq(t, `{"query":"x=1"}`, string(entries[1].Metadata))

	entries, err = store.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "u-1", entries[0].ActorID)
}
