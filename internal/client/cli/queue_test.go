package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/yardsync/internal/models"
)

func TestQueueList(t *testing.T) {
	e := newTestEnv(t)

	require.NoError(t, e.run("queue", "list"))
	contains(t, e.out.String(), "The queue is empty.")

	e.enqueue(t, 2)
	require.NoError(t, e.run("queue", "list"))

	out := e.out.String()
	contains(t, out, "ID", "STATUS", "pending")
	for _, s := range e.queued(t) {
		contains(t, out, s.ID)
	}
}

func TestQueueFailed(t *testing.T) {
	e := newTestEnv(t)
	e.enqueue(t, 2)
	list := e.queued(t)
	require.NoError(t, e.store.UpdateStatus(context.Background(), list[1].ID, models.StatusFailed, errors.New("HTTP 500: boom")))

	require.NoError(t, e.run("queue", "failed"))

	out := e.out.String()
	contains(t, out, list[1].ID, "HTTP 500: boom")
	assert.NotContains(t, out, list[0].ID)
}

func TestQueueClear(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		answers   []string
		wantLeft  int
		wantPrint string
	}{
		{name: "confirmed", args: []string{"queue", "clear"}, answers: []string{"y"}, wantPrint: "Offline data deleted."},
		{name: "declined", args: []string{"queue", "clear"}, answers: []string{"n"}, wantLeft: 3, wantPrint: "Cancelled."},
		{name: "empty answer", args: []string{"queue", "clear"}, answers: []string{""}, wantLeft: 3, wantPrint: "Cancelled."},
		{name: "yes flag", args: []string{"queue", "clear", "-y"}, wantPrint: "Offline data deleted."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.enqueue(t, 3)
			require.NoError(t, e.store.SaveDraft(context.Background(), models.KindEntry, map[string]any{"provider": "ACME"}))
			e.answer(tt.answers...)

			require.NoError(t, e.run(tt.args...))

			assert.Len(t, e.queued(t), tt.wantLeft)
			contains(t, e.out.String(), tt.wantPrint)

			draft, err := e.store.GetDraft(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantLeft > 0, draft != nil)
		})
	}
}

func TestQueueClearFailed(t *testing.T) {
	e := newTestEnv(t)
	e.enqueue(t, 3)
	list := e.queued(t)
	require.NoError(t, e.store.UpdateStatus(context.Background(), list[0].ID, models.StatusFailed, errors.New("timeout")))

	require.NoError(t, e.run("queue", "clear-failed"))

	assert.Len(t, e.queued(t), 2)
	contains(t, e.out.String(), "1 failed submission(s) deleted")
}

func TestBackup_ExportImport(t *testing.T) {
	src := newTestEnv(t)
	src.enqueue(t, 2)
	require.NoError(t, src.store.SaveDraft(context.Background(), models.KindExit, map[string]any{"client": "Muebles SA"}))

	file := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, src.run("backup", "export", "-o", file))
	contains(t, src.out.String(), "Backup written to "+file)

	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dst := newTestEnv(t)
	require.NoError(t, dst.run("backup", "import", file))
	contains(t, dst.out.String(), "Backup imported: 2 pending, 0 failed")

	assert.Len(t, dst.queued(t), 2)
	draft, err := dst.store.GetDraft(context.Background())
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, models.KindExit, draft.Kind)
}

func TestBackup_ExportToStdout(t *testing.T) {
	e := newTestEnv(t)
	e.enqueue(t, 1)

	require.NoError(t, e.run("backup", "export"))
	contains(t, e.out.String(), e.queued(t)[0].ID)
}

func TestBackup_ImportErrors(t *testing.T) {
	e := newTestEnv(t)

	require.Error(t, e.run("backup", "import", filepath.Join(t.TempDir(), "nope.json")))

	garbage := filepath.Join(t.TempDir(), "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("not json"), 0o600))
	require.Error(t, e.run("backup", "import", garbage))
}
