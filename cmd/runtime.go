package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/keyo-app/pulse-toast/internal/colors"
	"github.com/keyo-app/pulse-toast/internal/config"
	"github.com/keyo-app/pulse-toast/internal/history"
	"github.com/keyo-app/pulse-toast/internal/hooks"
	"github.com/keyo-app/pulse-toast/internal/logging"
	"github.com/keyo-app/pulse-toast/internal/metrics"
	"github.com/keyo-app/pulse-toast/internal/scope"
	"github.com/keyo-app/pulse-toast/internal/spool"
	"github.com/keyo-app/pulse-toast/internal/toast"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const closeTimeout = 5 * time.Second

// defaultsFromConfig builds the toast defaults from the position, duration
// and dismissible keys.
func defaultsFromConfig() toast.Defaults {
	d := toast.DefaultDefaults()
	if p, err := toast.ParsePosition(config.Get("position", d.Position.String())); err == nil {
		d.Position = p
	}
	d.Duration = config.GetDuration("duration", d.Duration)
	d.Dismissible = config.GetBool("dismissible", d.Dismissible)
	return d
}

// runtime is the manager of a long-running command with its observers and
// the scope that renders it.
type runtime struct {
	manager  *toast.Manager
	scope    *scope.Scope
	hooks    *hooks.Runner
	journal  *history.Journal
	registry *prometheus.Registry
	logger   logging.Logger
}

// newRuntime wires the manager to the hook runner, the history journal and
// the metrics collector as configured, installs it as the default manager
// and opens its scope.
func newRuntime(ctx context.Context) (*runtime, error) {
	logger := logging.GetGlobal()
	rt := &runtime{logger: logger}

	hookOpts := hooks.OptionsFromConfig()
	hookOpts.Logger = logger
	rt.hooks = hooks.NewRunner(hookOpts)
	if err := rt.hooks.EnsureDir(); err != nil {
		colors.Warning("hooks directory unavailable:", err.Error())
	}
	opts := []toast.ManagerOption{
		toast.WithLogger(logger),
		toast.WithObserver(rt.hooks.Observer()),
	}

	if config.GetBool("history_enabled", true) {
		j, err := openJournal()
		if err != nil {
			return nil, err
		}
		if n, err := j.MarkAbandoned(ctx); err != nil {
			colors.Warning("history: could not close stale records:", err.Error())
		} else if n > 0 {
			colors.Debug(fmt.Sprintf("history: closed %d stale records", n))
		}
		rt.journal = j
		opts = append(opts, toast.WithObserver(j))
	}

	if config.GetBool("metrics_enabled", true) {
		rt.registry = prometheus.NewRegistry()
		rt.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, toast.WithObserver(metrics.New(metrics.WithRegistry(rt.registry))))
	}

	defaults := defaultsFromConfig()
	rt.manager = toast.NewManager(append(opts, toast.WithDefaults(defaults))...)
	if err := rt.install(defaults); err != nil {
		return nil, err
	}
	return rt, nil
}

// install opens the manager's scope and only then makes the manager the
// process default. On failure it drains pending hooks and closes the journal.
func (rt *runtime) install(defaults toast.Defaults) error {
	sc, err := scope.Open(rt.manager, defaults, nil)
	if err != nil {
		rt.hooks.Wait()
		rt.closeJournal()
		return fmt.Errorf("open toast scope: %w", err)
	}
	rt.scope = sc
	toast.SetDefault(rt.manager)
	return nil
}

// submit creates a toast from a request whose buttons fire the action and
// cancel hooks.
func (rt *runtime) submit(req toast.Request) {
	id, err := req.Submit(rt.manager, rt.hooks.ButtonHandler())
	if err != nil {
		rt.logger.Warn("toast request rejected", "error", err.Error())
		return
	}
	rt.logger.Debug("toast submitted", "id", id, "kind", req.Kind)
}

// follower returns a spool follower that submits every request.
func (rt *runtime) follower(replay bool) *spool.Follower {
	opts := []spool.FollowerOption{spool.WithLogger(rt.logger)}
	if replay {
		opts = append(opts, spool.WithReplay())
	}
	return spool.NewFollower(config.Get("spool_path", ""), rt.submit, opts...)
}

// gatherer returns the metrics registry, or nil when metrics are disabled.
func (rt *runtime) gatherer() prometheus.Gatherer {
	if rt.registry == nil {
		return nil
	}
	return rt.registry
}

// Close releases the scope, waits for running hooks and closes the journal.
// Toasts still live are recorded as abandoned.
func (rt *runtime) Close() {
	rt.scope.Close()
	rt.hooks.Wait()
	rt.closeJournal()
}

func (rt *runtime) closeJournal() {
	if rt.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := rt.journal.Sync(ctx); err == nil {
		if _, err := rt.journal.MarkAbandoned(ctx); err != nil {
			rt.logger.Warn("history: mark abandoned on exit failed", "error", err.Error())
		}
	}
	if err := rt.journal.Close(); err != nil {
		rt.logger.Warn("history: close failed", "error", err.Error())
	}
}

// openJournal opens the configured history database.
func openJournal() (*history.Journal, error) {
	j, err := history.Open(config.Get("history_path", ""), history.WithLogger(logging.GetGlobal()))
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return j, nil
}
