package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/config"
	"github.com/Blaze-0903/NextStepAI/internal/database"
	"github.com/Blaze-0903/NextStepAI/internal/database/migration"
	dbpostgres "github.com/Blaze-0903/NextStepAI/internal/database/postgres"
	"github.com/Blaze-0903/NextStepAI/internal/database/seeder"
	"github.com/Blaze-0903/NextStepAI/internal/evolution"
	"github.com/Blaze-0903/NextStepAI/internal/infrastructure/cache"
	"github.com/Blaze-0903/NextStepAI/internal/infrastructure/queue"
	"github.com/Blaze-0903/NextStepAI/internal/infrastructure/storage"
	"github.com/Blaze-0903/NextStepAI/internal/ontology"
	"github.com/Blaze-0903/NextStepAI/internal/pkg/jwt"
	"github.com/Blaze-0903/NextStepAI/internal/repository"
	"github.com/Blaze-0903/NextStepAI/internal/repository/memory"
	"github.com/Blaze-0903/NextStepAI/internal/review"
	"github.com/Blaze-0903/NextStepAI/internal/scraper"
	"github.com/Blaze-0903/NextStepAI/internal/usecase"
	"github.com/Blaze-0903/NextStepAI/internal/usecase/auth"
	"github.com/Blaze-0903/NextStepAI/internal/ws"
	"github.com/Blaze-0903/NextStepAI/migrations"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	tokenIssuer       = "nextstep-admin"
	cachePurgeTimeout = 2 * time.Second
)

// Container owns every long-lived dependency of the service. Optional
// backends (Redis, RabbitMQ, S3, Postgres) are nil or disabled when their
// configuration is absent.
type Container struct {
	Config     config.Config
	Logger     *zap.Logger
	InstanceID string

	DB     database.DB
	Memory *memory.Store

	Ontology repository.Ontology
	Pending  repository.PendingUpdateRepository
	Analyses repository.AnalysisRepository

	Store    *ontology.Store
	Cache    *cache.Redis
	Queue    *queue.RabbitMQ
	Archive  *storage.S3Archive
	Hub      *ws.Hub
	Push     *ws.Notifier
	Tokens   *jwt.HMACService
	Engine   *evolution.Engine
	Trigger  *evolution.Trigger
	Workflow *review.Workflow
	Creds    *auth.Credentials
}

type containerOptions struct {
	skipReload  bool
	skipMigrate bool
}

type ContainerOption func(*containerOptions)

// WithoutInitialReload leaves the ontology store at version 0. Used by CLI
// commands that write the ontology before anything reads it.
func WithoutInitialReload() ContainerOption {
	return func(o *containerOptions) { o.skipReload = true }
}

// WithoutMigrations skips applying migrations on connect.
func WithoutMigrations() ContainerOption {
	return func(o *containerOptions) { o.skipMigrate = true }
}

func NewContainer(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...ContainerOption) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o containerOptions
	for _, opt := range opts {
		opt(&o)
	}

	c := &Container{Config: cfg, Logger: logger, InstanceID: uuid.NewString()}
	ok := false
	defer func() {
		if !ok {
			_ = c.Close()
		}
	}()

	if err := c.initStorage(ctx, !o.skipMigrate); err != nil {
		return nil, err
	}

	c.Cache = cache.NewRedis(cfg.Redis, logger)

	if cfg.RabbitMQ.Enabled() {
		q, err := queue.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, logger)
		if err != nil {
			logger.Warn("rabbitmq unavailable, evolution runs in-process", zap.Error(err))
		} else {
			c.Queue = q
		}
	}

	if cfg.S3.Enabled() {
		archive, err := storage.NewS3Archive(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("init s3 archive: %w", err)
		}
		c.Archive = archive
	}

	creds, err := auth.NewCredentials(cfg.Auth.AdminPassword, cfg.Auth.AdminPasswordHash)
	if err != nil {
		return nil, fmt.Errorf("admin credentials: %w", err)
	}
	if !creds.Enabled() {
		logger.Warn("no admin password configured, admin login disabled")
	}
	c.Creds = creds
	c.Tokens = jwt.NewHMACService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiresIn, tokenIssuer)

	c.Store = ontology.NewStore(c.Ontology, logger.Named("ontology"))
	c.Store.OnReload(func(snap *ontology.Snapshot) {
		logger.Debug("ontology snapshot published",
			zap.Int64("version", snap.Version),
			zap.Int("skills", snap.SkillCount()),
			zap.Int("roles", snap.RoleCount()),
			zap.Int("warnings", len(snap.Warnings())),
		)
	})
	if c.Cache.Available() {
		c.Store.OnReload(func(*ontology.Snapshot) {
			purgeCtx, cancel := context.WithTimeout(context.Background(), cachePurgeTimeout)
			defer cancel()
			if err := c.Cache.DeleteByPattern(purgeCtx, usecase.OntologyCachePattern); err != nil {
				logger.Warn("overview cache purge failed", zap.Error(err))
			}
		})
	}
	c.Hub = ws.NewHub(logger.Named("ws"))
	c.Push = ws.NewNotifier(c.Hub)

	var notifier interface {
		evolution.Notifier
		review.Notifier
	} = c.Push
	if c.Cache.Available() {
		notifier = &eventNotifier{push: c.Push, bus: c.Cache, origin: c.InstanceID, logger: logger}
	}

	c.Engine = evolution.NewEngine(evolutionConfig(cfg.Evolution), c.Ontology, c.Pending, c.Store, c.engineOptions(notifier)...)

	var publisher evolution.JobPublisher
	if c.Queue != nil {
		publisher = c.Queue
	}
	c.Trigger = evolution.NewTrigger(c.Engine, publisher, logger.Named("trigger"))

	c.Workflow = review.NewWorkflow(c.Ontology, c.Pending, c.Store,
		review.WithNotifier(notifier),
		review.WithLogger(logger.Named("review")),
	)

	if !o.skipReload {
		snap, err := c.Store.Reload(ctx)
		if err != nil {
			return nil, fmt.Errorf("initial ontology load: %w", err)
		}
		logger.Info("ontology loaded",
			zap.Int64("version", snap.Version),
			zap.Int("skills", snap.SkillCount()),
			zap.Int("roles", snap.RoleCount()),
		)
	}

	ok = true
	return c, nil
}

// initStorage connects Postgres and applies migrations, or falls back to the
// in-memory store seeded from the ontology file.
func (c *Container) initStorage(ctx context.Context, migrate bool) error {
	if !c.Config.Database.Enabled() {
		c.Memory = memory.New()
		c.Ontology = c.Memory.Ontology()
		c.Pending = c.Memory
		c.Analyses = c.Memory

		c.Logger.Warn("DB_HOST not set, using in-memory store", zap.String("seed_file", c.Config.Ontology.SeedFile))
		return seeder.Runner{
			Seeders: seeder.Defaults(c.Config.Ontology.SeedFile, c.Ontology, nil),
			Logger:  c.Logger,
		}.Run(ctx)
	}

	db, err := dbpostgres.Connect(ctx, c.Config.Database)
	if err != nil {
		return err
	}
	c.DB = db

	if migrate {
		if err := c.Migrate(ctx); err != nil {
			return err
		}
	}

	c.Ontology = repository.Ontology{
		SkillRepository: repository.NewPostgresSkillRepository(db),
		RoleRepository:  repository.NewPostgresRoleRepository(db),
	}
	c.Pending = repository.NewPostgresPendingUpdateRepository(db)
	c.Analyses = repository.NewPostgresAnalysisRepository(db)
	return nil
}

// Migrate applies pending schema migrations. It is a no-op in memory mode.
func (c *Container) Migrate(ctx context.Context) error {
	if c.DB == nil {
		return nil
	}
	if err := c.migrationRunner().Run(ctx, c.DB.SQLDB()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// MigrationStatus lists the known migrations and which are applied.
func (c *Container) MigrationStatus(ctx context.Context) ([]migration.State, error) {
	if c.DB == nil {
		return nil, nil
	}
	return c.migrationRunner().Status(ctx, c.DB.SQLDB())
}

// migrationRunner reads MIGRATIONS_DIR when set and the embedded files
// otherwise.
func (c *Container) migrationRunner() migration.Runner {
	r := migration.Runner{Dir: c.Config.Database.MigrationsDir, Logger: c.Logger}
	if r.Dir == "" {
		r.FS = migrations.FS
	}
	return r
}

// Seed replaces the stored ontology with the contents of path.
func (c *Container) Seed(ctx context.Context, path string) error {
	if path == "" {
		path = c.Config.Ontology.SeedFile
	}
	return seeder.Runner{
		Seeders: seeder.Defaults(path, c.Ontology, c.DB),
		Logger:  c.Logger,
	}.Run(ctx)
}

func (c *Container) engineOptions(n evolution.Notifier) []evolution.Option {
	opts := []evolution.Option{
		evolution.WithNotifier(n),
		evolution.WithLogger(c.Logger.Named("evolution")),
		evolution.WithSignalSource(c.signalSource()),
	}
	if c.Cache.Available() {
		opts = append(opts, evolution.WithLocker(c.Cache))
	}
	return opts
}

// signalSource scrapes the configured job boards, or simulates the market
// when none are configured.
func (c *Container) signalSource() evolution.SignalSource {
	m := c.Config.Market
	if len(m.URLs) == 0 {
		return evolution.SimulatedSource{}
	}

	var fetcher scraper.PageFetcher
	if m.Headless {
		fetcher = scraper.HeadlessFetcher{Selector: m.Selector, Timeout: m.Timeout}
	} else {
		fetcher = scraper.CollyFetcher{Selector: m.Selector, Timeout: m.Timeout}
	}
	return scraper.NewMarketSource(scraper.MarketSourceConfig{
		URLs:    m.URLs,
		Workers: m.Workers,
	}, fetcher, c.Logger.Named("market"))
}

// FollowReloads reloads the local snapshot whenever another replica announces
// an ontology change. It blocks until ctx ends and returns nil when Redis is
// not configured.
func (c *Container) FollowReloads(ctx context.Context) error {
	if !c.Cache.Available() {
		return nil
	}
	return c.Cache.SubscribeReload(ctx, c.InstanceID, c.applyRemoteReload)
}

// applyRemoteReload reloads for every change announced by another process.
// Snapshot versions are per-process counters and cannot be compared across
// replicas, so the sender's version is only logged.
func (c *Container) applyRemoteReload(ctx context.Context, msg cache.ReloadMessage) {
	snap, err := c.Store.Reload(ctx)
	if err != nil {
		c.Logger.Warn("ontology reload after broadcast failed",
			zap.String("origin", msg.Origin),
			zap.Int64("origin_version", msg.Version),
			zap.Error(err),
		)
		return
	}
	c.Logger.Debug("ontology reloaded after broadcast",
		zap.String("origin", msg.Origin),
		zap.Int64("origin_version", msg.Version),
		zap.Int64("version", snap.Version),
	)
	c.Push.OntologyChanged(ctx, snap.Version)
}

// Usecases builds the request-facing usecases over the container's backends.
func (c *Container) Usecases() (usecase.AnalysisUsecase, usecase.OntologyUsecase, usecase.AdminUsecase) {
	var archive usecase.ResumeArchive
	if c.Archive != nil {
		archive = c.Archive
	}
	var ontologyCache usecase.Cache
	if c.Cache.Available() {
		ontologyCache = c.Cache
	}

	analysis := usecase.NewAnalysisUsecase(c.Store, c.Analyses, archive, c.Logger.Named("analysis"))
	overview := usecase.NewOntologyUsecase(c.Store, ontologyCache, c.Config.Redis.TTL, c.Logger.Named("ontology"))
	admin := usecase.NewAdminUsecase(c.Creds, c.Tokens, c.Workflow, c.Trigger, c.Logger.Named("admin"))
	return analysis, overview, admin
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Trigger != nil {
		c.Trigger.Wait()
	}
	if c.Queue != nil {
		errs = append(errs, c.Queue.Close())
	}
	if c.Cache != nil {
		errs = append(errs, c.Cache.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}

func evolutionConfig(ec config.EvolutionConfig) evolution.Config {
	cfg := evolution.DefaultConfig()
	if ec.DepreciationStep > 0 {
		cfg.DepreciationStep = ec.DepreciationStep
	}
	if ec.FlagThreshold > 0 {
		cfg.FlagThreshold = ec.FlagThreshold
	}
	if ec.StaleAfterDays > 0 {
		cfg.StaleAfterDays = ec.StaleAfterDays
	}
	if ec.IncrementMin > 0 {
		cfg.IncrementMin = ec.IncrementMin
	}
	if ec.IncrementMax > 0 {
		cfg.IncrementMax = ec.IncrementMax
	}
	if ec.NewSkillSample > 0 {
		cfg.NewSkillSample = ec.NewSkillSample
	}
	if ec.NewRoleSample > 0 {
		cfg.NewRoleSample = ec.NewRoleSample
	}
	if ec.LockTTL > 0 {
		cfg.LockTTL = ec.LockTTL
	}
	return cfg
}
