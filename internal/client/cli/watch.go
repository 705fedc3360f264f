package cli

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/iudanet/yardsync/internal/client/session"
	"github.com/iudanet/yardsync/internal/models"
)

func (c *Cli) watchCommand() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stay running, follow connectivity and sync automatically when it returns",
		Long: `Stay running until interrupted. The collector is probed periodically;
whenever it becomes reachable again the queued submissions are sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runWatch(cmd.Context(), kind)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(models.KindEntry), "form whose draft is kept during the session")
	return cmd
}

func (c *Cli) runWatch(ctx context.Context, kindArg string) error {
	kind, err := parseKind(kindArg)
	if err != nil {
		return err
	}
	form, err := c.Catalogue.Get(kind)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if c.Config != nil && c.Config.MetricsAddr != "" && c.Registry != nil {
		stop := c.serveMetrics(c.Config.MetricsAddr)
		defer stop()
	}

	// До первой проверки сервер считается недоступным, первый успешный ответ запускает синхронизацию
	c.Monitor.Set(false)

	ctrl := c.newSession(form, true)
	defer ctrl.Close()

	var (
		mu   sync.Mutex
		last session.State
	)
	unsubscribe := ctrl.Subscribe(func(st session.State) {
		mu.Lock()
		defer mu.Unlock()
		if st.IsOnline != last.IsOnline || st.PendingSubmissions != last.PendingSubmissions ||
			st.IsSyncing != last.IsSyncing {
			c.printWatchState(st)
		}
		last = st
	})
	defer unsubscribe()

	if err := ctrl.Mount(ctx); err != nil {
		return err
	}

	c.io.Println("Watching connectivity. Press Ctrl+C to stop.")
	c.Monitor.Watch(ctx, c.Prober.Run(ctx))
	return nil
}

func (c *Cli) printWatchState(st session.State) {
	status := "offline"
	switch {
	case st.IsSyncing:
		status = "syncing"
	case st.IsOnline:
		status = "online"
	}
	c.io.Printf("[%s] %-8s pending: %d  last sync: %s  sent this session: %d\n",
		c.Clock.Now().Format(time.TimeOnly), status, st.PendingSubmissions,
		formatTime(st.LastSyncTime), st.SuccessfulSubmissions)
}

// serveMetrics exposes the client registry on addr until the returned func is called
func (c *Cli) serveMetrics(addr string) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.Logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
