package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/keyo-app/pulse-toast/internal/config"
	"github.com/keyo-app/pulse-toast/internal/history"
	"github.com/keyo-app/pulse-toast/internal/hooks"
	"github.com/keyo-app/pulse-toast/internal/logging"
	"github.com/keyo-app/pulse-toast/internal/scope"
	"github.com/keyo-app/pulse-toast/internal/spool"
	"github.com/keyo-app/pulse-toast/internal/toast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsFromConfig(t *testing.T) {
	setupConfig(t, "POSITION", "top-center", "DURATION", "1500", "DISMISSIBLE", "false")

	d := defaultsFromConfig()

	assert.Equal(t, toast.TopCenter, d.Position)
	assert.Equal(t, 1500*time.Millisecond, d.Duration)
	assert.False(t, d.Dismissible)
}

func TestDefaultsFromConfigBuiltin(t *testing.T) {
	setupConfig(t)

	require.Equal(t, toast.DefaultDefaults(), defaultsFromConfig())
}

func TestRuntimeInstallFailureKeepsDefaultAndDrainsHooks(t *testing.T) {
	setupConfig(t)
	previous := toast.Default()
	dir := t.TempDir()
	marker := filepath.Join(t.TempDir(), "ran")
	hookDir := filepath.Join(dir, string(hooks.PointPostAdd))
	require.NoError(t, os.MkdirAll(hookDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(hookDir, "slow.sh"), []byte("#!/bin/sh\nsleep 0.2\ntouch "+marker+"\n"), 0755))

	rt := &runtime{
		manager: toast.NewManager(),
		hooks:   hooks.NewRunner(hooks.Options{Dir: dir, Enabled: true, FailureMode: hooks.FailureIgnore, Timeout: 5 * time.Second, MaxPending: 1, Logger: logging.Nop()}),
		logger:  logging.Nop(),
	}
	require.True(t, rt.manager.BindScope())
	require.True(t, rt.hooks.Go(hooks.Event{Point: hooks.PointPostAdd, Toast: toast.Toast{ID: "t-1", Kind: toast.KindInfo}}))

	err := rt.install(toast.DefaultDefaults())

	require.ErrorIs(t, err, scope.ErrScopeActive)
	require.Same(t, previous, toast.Default())
	require.Nil(t, rt.scope)
	_, statErr := os.Stat(marker)
	require.NoError(t, statErr, "pending hook was not drained")
}

func TestRuntimeJournalsToasts(t *testing.T) {
	setupConfig(t, "DURATION", "0")
	ctx := context.Background()

	rt, err := newRuntime(ctx)
	require.NoError(t, err)
	require.Same(t, rt.manager, toast.Default())

	gone := toast.Success("saved")
	toast.Dismiss(gone)
	live := toast.Info("still here")
	require.Equal(t, []string{live}, toastIDs(rt.scope.Toasts()))

	rt.Close()

	store, err := openJournalStore()
	require.NoError(t, err)
	defer store.Close()
	records, err := store.List(ctx, history.Filter{})
	require.NoError(t, err)
	causes := map[string]string{}
	for _, r := range records {
		causes[r.ID] = r.Cause
	}
	assert.Equal(t, map[string]string{
		gone: toast.CauseDismissed.String(),
		live: history.CauseAbandoned,
	}, causes)
}

func TestRuntimeMetrics(t *testing.T) {
	setupConfig(t, "HISTORY_ENABLED", "false")

	rt, err := newRuntime(context.Background())
	require.NoError(t, err)
	defer rt.Close()
	require.Nil(t, rt.journal)

	rt.manager.Add(toast.KindWarning, "counted")

	families, err := rt.gatherer().Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "pulse_toast_toasts_created_total" {
			found = true
			require.Equal(t, float64(1), f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	require.True(t, found)
}

func TestRuntimeWithoutMetrics(t *testing.T) {
	setupConfig(t, "HISTORY_ENABLED", "false", "METRICS_ENABLED", "false")

	rt, err := newRuntime(context.Background())
	require.NoError(t, err)
	defer rt.Close()

	require.Nil(t, rt.gatherer())
	require.Equal(t, http.StatusNotFound, metricsStatus(t, rt))
}

func TestFeedServerExposesMetrics(t *testing.T) {
	setupConfig(t, "HISTORY_ENABLED", "false")

	rt, err := newRuntime(context.Background())
	require.NoError(t, err)
	defer rt.Close()

	require.Equal(t, http.StatusOK, metricsStatus(t, rt))
}

func metricsStatus(t *testing.T, rt *runtime) int {
	t.Helper()
	srv := newFeedServer(rt)
	defer srv.Close()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Code
}

func TestRuntimeFollowsSpool(t *testing.T) {
	setupConfig(t, "HISTORY_ENABLED", "false")
	rt, err := newRuntime(context.Background())
	require.NoError(t, err)
	defer rt.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.follower(false).Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	path := config.Get("spool_path", "")
	require.Eventually(t, func() bool {
		_ = spool.Append(path, toast.Request{Kind: "info", Description: "from another process"})
		return len(rt.manager.Toasts()) > 0
	}, 2*time.Second, 50*time.Millisecond)

	got := rt.manager.Toasts()[0]
	require.Equal(t, toast.KindInfo, got.Kind)
	require.Equal(t, "from another process", got.Description)
}

func TestRuntimeSubmitRejectsInvalid(t *testing.T) {
	setupConfig(t, "HISTORY_ENABLED", "false")
	rt, err := newRuntime(context.Background())
	require.NoError(t, err)
	defer rt.Close()

	rt.submit(toast.Request{Kind: "loud", Description: "x"})

	require.Empty(t, rt.manager.Toasts())
}

func TestListenAddr(t *testing.T) {
	setupConfig(t, "LISTEN_ADDR", "127.0.0.1:9999")

	require.Equal(t, "127.0.0.1:9999", listenAddr(""))
	require.Equal(t, "0.0.0.0:1", listenAddr("0.0.0.0:1"))
}

func toastIDs(list []toast.Toast) []string {
	out := make([]string, 0, len(list))
	for _, t := range list {
		out = append(out, t.ID)
	}
	return out
}
