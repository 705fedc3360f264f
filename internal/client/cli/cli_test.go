package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/yardsync/internal/client/auth"
	"github.com/iudanet/yardsync/internal/client/connectivity"
	"github.com/iudanet/yardsync/internal/client/iocli"
	"github.com/iudanet/yardsync/internal/client/notify"
	"github.com/iudanet/yardsync/internal/client/queue"
	"github.com/iudanet/yardsync/internal/client/storage/memory"
	syncsvc "github.com/iudanet/yardsync/internal/client/sync"
	"github.com/iudanet/yardsync/internal/clock"
	"github.com/iudanet/yardsync/internal/forms"
	"github.com/iudanet/yardsync/internal/models"
)

var start = time.Date(2025, 6, 2, 7, 30, 0, 0, time.UTC)

// syncBuffer is a bytes.Buffer safe for the goroutines of the watch command
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testEnv struct {
	cli       *Cli
	out       *syncBuffer
	store     *queue.Store
	transport *syncsvc.TransportMock
	auth      *AuthenticatorMock
	prober    *ProberMock
	monitor   *connectivity.Monitor
	clock     *clock.Fake

	// respond answers prompts when set, otherwise inputs are consumed in order
	respond func(prompt string) (string, error)

	mu      sync.Mutex
	inputs  []string
	online  bool
	prompts []string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	e := &testEnv{out: &syncBuffer{}, clock: clock.NewFake(start), online: true}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mockIO := &iocli.IOMock{
		PrintlnFunc: func(a ...any) {
			fmt.Fprintln(e.out, a...)
		},
		PrintfFunc: func(format string, a ...any) {
			fmt.Fprintf(e.out, format, a...)
		},
		WriteFunc: func(p []byte) (int, error) {
			return e.out.Write(p)
		},
		ReadInputFunc:    e.nextInput,
		ReadPasswordFunc: e.nextInput,
	}

	notifier := notify.NewConsole(mockIO, true)
	e.store = queue.New(queue.Options{KV: memory.New(0), Clock: e.clock, Notifier: notifier, Logger: logger})
	e.monitor = connectivity.New(true, logger)
	e.transport = &syncsvc.TransportMock{DeliverFunc: func(context.Context, models.Payload) error { return nil }}
	e.auth = &AuthenticatorMock{}
	e.prober = &ProberMock{ProbeFunc: func(context.Context) bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.online
	}}

	svc := syncsvc.NewService(syncsvc.Options{
		Store:        e.store,
		Transport:    e.transport,
		Connectivity: e.monitor,
		Notifier:     notifier,
		Clock:        e.clock,
		Logger:       logger,
	})

	e.cli = New(mockIO, BuildInfo{Version: "1.2.3", BuildDate: "2025-06-01", GitCommit: "abc123"}, Deps{
		Logger:    logger,
		Clock:     e.clock,
		Notifier:  notifier,
		Store:     e.store,
		Auth:      e.auth,
		Sync:      svc,
		Transport: e.transport,
		Monitor:   e.monitor,
		Prober:    e.prober,
		Catalogue: forms.MustLoad(),
	})
	return e
}

func (e *testEnv) setOnline(v bool) {
	e.mu.Lock()
	e.online = v
	e.mu.Unlock()
}

func (e *testEnv) answer(inputs ...string) {
	e.mu.Lock()
	e.inputs = append(e.inputs, inputs...)
	e.mu.Unlock()
}

func (e *testEnv) nextInput(prompt string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prompts = append(e.prompts, prompt)
	if e.respond != nil {
		return e.respond(prompt)
	}
	if len(e.inputs) == 0 {
		return "", io.EOF
	}
	in := e.inputs[0]
	e.inputs = e.inputs[1:]
	return in, nil
}

func (e *testEnv) run(args ...string) error {
	return e.cli.Execute(context.Background(), args)
}

func (e *testEnv) queued(t *testing.T) []*models.Submission {
	t.Helper()
	list, err := e.store.ListSubmissions(context.Background())
	require.NoError(t, err)
	return list
}

func (e *testEnv) enqueue(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := e.store.SaveSubmission(context.Background(), models.Payload{
			Kind:   models.KindEntry,
			Fields: map[string]any{"remissionNumber": fmt.Sprintf("R-%d", i+1)},
		})
		require.NoError(t, err)
	}
}

func validEntryArgs() []string {
	return []string{
		"-f", "remissionNumber=R-1001",
		"-f", "provider=Maderas del Norte",
		"-f", "originYard=Patio 3",
		"-f", "rawMaterial=pine",
		"-f", "vehiclePlate=ABC123",
		"-f", "transportCompany=TransCarga",
		"-f", "netWeight=12.4",
	}
}

func loggedIn() *auth.Session {
	return &auth.Session{
		Username:  "alice",
		Role:      models.RoleYardOperator,
		Token:     "token",
		ExpiresAt: start.Add(time.Hour),
	}
}

func contains(t *testing.T, out string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		require.True(t, strings.Contains(out, p), "output should contain %q:\n%s", p, out)
	}
}
