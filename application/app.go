// Package application runs a set of components with the shared config and
// logger components: it loads configuration, initializes and starts the
// components in dependency order and stops them on shutdown.
package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rhusar/jgroups-opentelemetry/component"
	"github.com/rhusar/jgroups-opentelemetry/config"
	"github.com/rhusar/jgroups-opentelemetry/logger"
	"github.com/rhusar/jgroups-opentelemetry/registry"
)

type AppState int

const (
	StateInit AppState = iota
	StateSetup
	StateRunning
	StateStopping
	StateStopped
)

func (s AppState) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateSetup:
		return "Setup"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Options locate the configuration.
type Options struct {
	// ConfigPath holds config.yaml and <env>.yaml. Empty means environment only.
	ConfigPath  string
	EnvPrefix   string
	EnvBindings map[string]string
}

type Application struct {
	loader   *config.Loader
	loggers  *logger.Manager
	logger   *logger.CtxZapLogger
	registry *registry.Registry

	ctx    context.Context
	cancel context.CancelFunc
	state  AppState
	mu     sync.RWMutex

	version         string
	shutdownTimeout time.Duration
	onReady         func(*Application) error
	onShutdown      func(context.Context) error
}

// New loads the configuration and the logger settings and registers the
// config and logger components.
func New(opts Options) (*Application, error) {
	loader, err := config.NewLoaderBuilder().
		WithConfigPath(opts.ConfigPath).
		WithEnvPrefix(opts.EnvPrefix).
		WithEnvBindings(opts.EnvBindings).
		Build()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	logCfg, err := loadLoggerConfig(loader)
	if err != nil {
		return nil, fmt.Errorf("load logger config failed: %w", err)
	}
	loggers := logger.NewManager(logCfg)
	log := loggers.GetLogger("application")

	reg := registry.NewRegistry(log)
	reg.MustRegister(NewConfigComponent(loader))
	reg.MustRegister(NewLoggerComponent(loggers))

	ctx, cancel := context.WithCancel(context.Background())
	log.DebugCtx(ctx, "application created",
		zap.String("config_path", opts.ConfigPath),
		zap.Strings("config_files", loader.LoadedFiles()))

	return &Application{
		loader:   loader,
		loggers:  loggers,
		logger:   log,
		registry: reg,
		ctx:      ctx,
		cancel:   cancel,
		state:    StateInit,

		shutdownTimeout: 5 * time.Second,
	}, nil
}

func (a *Application) WithVersion(version string) *Application {
	a.version = version
	return a
}

// Register adds components to run after config and logger.
func (a *Application) Register(comps ...component.Component) error {
	for _, c := range comps {
		if err := a.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (a *Application) WithShutdownTimeout(timeout time.Duration) *Application {
	a.shutdownTimeout = timeout
	return a
}

func (a *Application) OnReady(fn func(*Application) error) *Application {
	a.onReady = fn
	return a
}

func (a *Application) OnShutdown(fn func(context.Context) error) *Application {
	a.onShutdown = fn
	return a
}

// Setup initializes and starts every component, then runs the OnReady callback.
func (a *Application) Setup() error {
	a.setState(StateSetup)
	if err := a.registry.Init(a.ctx, a.loader); err != nil {
		return fmt.Errorf("init components failed: %w", err)
	}
	if err := a.registry.Start(a.ctx); err != nil {
		return fmt.Errorf("start components failed: %w", err)
	}
	a.setState(StateRunning)

	if a.onReady != nil {
		if err := a.onReady(a); err != nil {
			return fmt.Errorf("onReady failed: %w", err)
		}
	}
	a.logger.InfoCtx(a.ctx, "application started", zap.String("version", a.version))
	return nil
}

// Shutdown runs the OnShutdown callback and stops every component within timeout.
func (a *Application) Shutdown(timeout time.Duration) error {
	a.setState(StateStopping)
	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.logger.InfoCtx(ctx, "shutting down application")
	if a.onShutdown != nil {
		if err := a.onShutdown(ctx); err != nil {
			a.logger.ErrorCtx(ctx, "OnShutdown callback failed", zap.Error(err))
		}
	}
	err := a.registry.Stop(ctx)
	a.setState(StateStopped)
	return err
}

// Run sets up the components and calls fn with the application context.
// It shuts down when fn returns or on the first signal, which cancels the
// context fn runs with.
func (a *Application) Run(fn func(ctx context.Context) error) error {
	if err := a.Setup(); err != nil {
		return errors.Join(err, a.Shutdown(a.shutdownTimeout))
	}

	done := make(chan error, 1)
	go func() {
		done <- fn(a.ctx)
		a.cancel()
	}()
	a.WaitShutdown()
	err := <-done
	return errors.Join(err, a.Shutdown(a.shutdownTimeout))
}

// WaitShutdown blocks until SIGINT, SIGTERM or Cancel. A second signal exits immediately.
func (a *Application) WaitShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		a.logger.InfoCtx(a.ctx, "shutdown signal received", zap.String("signal", sig.String()))
		a.cancel()
		go func() {
			sig := <-quit
			a.logger.WarnCtx(context.Background(), "second signal received, forcing exit", zap.String("signal", sig.String()))
			os.Exit(1)
		}()
	case <-a.ctx.Done():
		signal.Stop(quit)
	}
}

func (a *Application) Cancel() {
	a.cancel()
}

// Context is cancelled when shutdown begins.
func (a *Application) Context() context.Context {
	return a.ctx
}

func (a *Application) Logger(module string) *logger.CtxZapLogger {
	return a.loggers.GetLogger(module)
}

func (a *Application) ConfigLoader() *config.Loader {
	return a.loader
}

func (a *Application) Registry() *registry.Registry {
	return a.registry
}

func (a *Application) State() AppState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Application) setState(state AppState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = state
}
