package di

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/forgestack/forge/internal/config"
	"github.com/forgestack/forge/internal/logging"
	"github.com/forgestack/forge/internal/repository"
	"github.com/forgestack/forge/internal/services"
	"github.com/forgestack/forge/pkg/builders"
	"github.com/forgestack/forge/pkg/deploy"
	"github.com/forgestack/forge/pkg/ledger"
	"github.com/forgestack/forge/pkg/registry"
	localRegistry "github.com/forgestack/forge/pkg/registry/local"
	"github.com/forgestack/forge/pkg/status"
	"go.uber.org/dig"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Module provides the forge services from a *config.Config supplied by the
// caller. It never opens the history database; add HistoryModule for that.
var Module = fx.Module("forge",
	fx.Provide(
		NewLogger,
		NewDialer,
		NewBuildOptions,
		NewDeployer,
		NewResolver,
		NewProgramService,
	),
)

// HistoryModule opens the badger-backed history. Badger holds an exclusive
// lock on its directory, so only commands that read or write the history
// include it.
var HistoryModule = fx.Module("history",
	fx.Provide(
		NewDBRepository,
		NewRegistry,
	),
)

// NewLogger builds the application logger from the log settings.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.File)
}

// NewDBRepository opens the history database and closes it when the app stops.
func NewDBRepository(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (repository.DBRepository, error) {
	db, err := repository.Open(filepath.Join(cfg.Registry.Dir, "registry.db"), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return db.Close()
		},
	})

	return db, nil
}

func NewRegistry(cfg *config.Config, db repository.DBRepository) registry.Registry {
	return localRegistry.NewLocalRegistry(cfg.Registry.Dir, db)
}

func NewDialer(cfg *config.Config, logger *zap.Logger) ledger.Dialer {
	return ledger.NewDialer(ledger.Options{
		Timeout: cfg.RPC.Timeout,
		Logger:  logger.Named("ledger"),
	})
}

// NewBuildOptions returns the builder defaults every build starts from.
func NewBuildOptions(cfg *config.Config, logger *zap.Logger) *builders.Options {
	return builders.DefaultOptions().
		WithToolchain(cfg.Toolchain).
		WithIdentityMode(builders.IdentityMode(cfg.Build.IdentityMode)).
		WithLogger(logger.Named("build"))
}

func NewDeployer(cfg *config.Config, dialer ledger.Dialer, logger *zap.Logger) *deploy.Deployer {
	opts := deploy.DefaultOptions().
		WithDialer(dialer).
		WithChunkSize(cfg.Deploy.ChunkSize).
		WithLogger(logger.Named("deploy"))
	if payer, ok := cfg.Payer(); ok {
		opts = opts.WithPayer(payer)
	}
	return deploy.NewDeployer(opts)
}

func NewResolver(dialer ledger.Dialer, logger *zap.Logger) *status.Resolver {
	return status.NewResolver(dialer, logger.Named("status"))
}

// ServiceParams are the dependencies of the program service.
type ServiceParams struct {
	fx.In

	BuildOptions *builders.Options
	Deployer     *deploy.Deployer
	Resolver     *status.Resolver
	Dialer       ledger.Dialer
	Registry     registry.Registry `optional:"true"`
	Logger       *zap.Logger
}

func NewProgramService(p ServiceParams) services.ProgramService {
	return services.NewProgramService(services.Dependencies{
		BuilderFactory: builders.NewSBFBuilder,
		BuildDefaults:  p.BuildOptions,
		Deployer:       p.Deployer,
		Resolver:       p.Resolver,
		Dialer:         p.Dialer,
		Registry:       p.Registry,
		Logger:         p.Logger,
	})
}

// Container is a started application graph.
type Container struct {
	app      *fx.App
	programs services.ProgramService
	logger   *zap.Logger
}

// NewContainer wires the application for cfg. Call Start before using it and
// Stop when done. Pass HistoryModule to give the program service a history.
func NewContainer(cfg *config.Config, opts ...fx.Option) (*Container, error) {
	c := &Container{}

	options := []fx.Option{
		fx.Supply(cfg),
		Module,
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			fxLogger := &fxevent.ZapLogger{Logger: logger.Named("fx")}
			fxLogger.UseLogLevel(zap.DebugLevel)
			return fxLogger
		}),
		fx.Populate(&c.programs, &c.logger),
	}
	options = append(options, opts...)

	c.app = fx.New(options...)
	if err := c.app.Err(); err != nil {
		return nil, fmt.Errorf("failed to wire application: %w", dig.RootCause(err))
	}

	return c, nil
}

func (c *Container) Start(ctx context.Context) error {
	return c.app.Start(ctx)
}

// Stop runs the shutdown hooks and flushes the logger.
func (c *Container) Stop(ctx context.Context) error {
	err := c.app.Stop(ctx)
	_ = c.logger.Sync()
	return err
}

func (c *Container) Programs() services.ProgramService {
	return c.programs
}

func (c *Container) Logger() *zap.Logger {
	return c.logger
}
