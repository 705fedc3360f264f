package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/yardsync/internal/models"
)

func TestStore_ExportImportRoundTrip(t *testing.T) {
	src := newFixture(t)
	ctx := context.Background()

	a, err := src.store.SaveSubmission(ctx, entry(1))
	require.NoError(t, err)
	require.NoError(t, src.store.UpdateStatus(ctx, a.ID, models.StatusFailed, nil))
	_, err = src.store.SaveSubmission(ctx, entry(2))
	require.NoError(t, err)
	require.NoError(t, src.store.SaveDraft(ctx, models.KindExit, map[string]any{"client": "ACME"}))

	src.clock.Advance(time.Hour)
	data, err := src.store.Export(ctx)
	require.NoError(t, err)

	var backup Backup
	require.NoError(t, json.Unmarshal(data, &backup))
	assert.Equal(t, BackupVersion, backup.Version)
	assert.True(t, start.Add(time.Hour).Equal(backup.ExportDate))
	assert.Len(t, backup.Forms, 2)
	require.NotNil(t, backup.Draft)
	assert.Contains(t, string(data), "\n  \"forms\"")

	dst := newFixture(t)
	require.NoError(t, dst.store.Import(ctx, data))

	srcList, err := src.store.ListSubmissions(ctx)
	require.NoError(t, err)
	dstList, err := dst.store.ListSubmissions(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids(srcList), ids(dstList))
	assert.Equal(t, 1, dstList[0].Attempts)

	draft, err := dst.store.GetDraft(ctx)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, "ACME", draft.Fields["client"])
}

func TestStore_ExportEmpty(t *testing.T) {
	f := newFixture(t)

	data, err := f.store.Export(context.Background())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []any{}, raw["forms"])
	assert.Nil(t, raw["draft"])
}

func TestStore_ImportRejectsInvalidData(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"forms": [`},
		{"forms not array", `{"forms": {"id": "x"}}`},
		{"missing forms", `{"draft": null}`},
		{"missing id", `{"forms": [{"kind": "entry"}]}`},
		{"unknown kind", `{"forms": [{"id": "form_1", "kind": "inventory"}]}`},
		{"duplicate id", `{"forms": [{"id": "form_1", "kind": "entry"}, {"id": "form_1", "kind": "exit"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			existing, err := f.store.SaveSubmission(ctx, entry(1))
			require.NoError(t, err)

			err = f.store.Import(ctx, []byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalidBackup)

			// Ничего не записано
			list, err := f.store.ListSubmissions(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{existing.ID}, ids(list))
		})
	}
}

func TestStore_ImportKeepsDraftWhenBackupHasNone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SaveDraft(ctx, models.KindEntry, map[string]any{"a": 1}))
	require.NoError(t, f.store.Import(ctx, []byte(`{"forms": []}`)))

	draft, err := f.store.GetDraft(ctx)
	require.NoError(t, err)
	assert.NotNil(t, draft)
}

func TestStore_ImportEnforcesBound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	forms := make([]*models.Submission, 0, 55)
	for i := range 55 {
		forms = append(forms, &models.Submission{
			Payload: models.Payload{ID: fmt.Sprintf("form_%d", i), Kind: models.KindTransfer},
			SavedAt: start,
			Status:  models.StatusPending,
		})
	}
	data, err := json.Marshal(map[string]any{"forms": forms})
	require.NoError(t, err)

	require.NoError(t, f.store.Import(ctx, data))

	list, err := f.store.ListSubmissions(ctx)
	require.NoError(t, err)
	require.Len(t, list, DefaultMaxItems)
	assert.Equal(t, "form_5", list[0].ID)
	assert.Equal(t, "form_54", list[49].ID)
}
