package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/short5-cli/internal/adapters/api"
	itemsrender "github.com/bnema/short5-cli/internal/adapters/render/items"
	tomlrepo "github.com/bnema/short5-cli/internal/adapters/repo/toml"
	chainstore "github.com/bnema/short5-cli/internal/adapters/store/chain"
	filestore "github.com/bnema/short5-cli/internal/adapters/store/file"
	memorystore "github.com/bnema/short5-cli/internal/adapters/store/memory"
	passstore "github.com/bnema/short5-cli/internal/adapters/store/pass"
	redisstore "github.com/bnema/short5-cli/internal/adapters/store/redis"
	"github.com/bnema/short5-cli/internal/adapters/store/scoped"
	sqlitestore "github.com/bnema/short5-cli/internal/adapters/store/sqlite"
	"github.com/bnema/short5-cli/internal/application"
	"github.com/bnema/short5-cli/internal/config"
	"github.com/bnema/short5-cli/internal/domain"
	"github.com/bnema/short5-cli/internal/logging"
	"github.com/bnema/short5-cli/internal/ports"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	backendFile   = "file"
	backendPass   = "pass"
	backendChain  = "chain"
	backendSQLite = "sqlite"
	backendRedis  = "redis"
	backendMemory = "memory"

	sqliteFileName = "s5.db"
)

// base is what every command needs, including the ones that never touch
// the session store.
type base struct {
	config   config.Config
	logger   *zap.Logger
	profiles *tomlrepo.Repository
	now      func() time.Time
}

type app struct {
	*base

	profile    domain.Profile
	backend    string
	session    *application.SessionManager
	queue      *application.VoteQueue
	visitor    *application.Visitor
	reconciler *application.Reconciler
	auth       *application.AuthService
	votes      *application.VoteService
	feed       *application.FeedService
	share      *application.ShareService

	renderItems    func([]domain.Item, itemsrender.ListOptions) (string, error)
	renderIdentity func(domain.Identity, time.Time, time.Time) (string, error)
	renderQueue    func([]domain.VoteIntent, time.Time) (string, error)
}

func wireBase(opts *rootOptions, logOutput io.Writer) (*base, error) {
	cfg := viper.New()
	loaded, err := config.Load(cfg, opts.configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logOutput, logging.Options{Level: loaded.Log.Level, Format: loaded.Log.Format})
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}

	repo, err := tomlrepo.NewRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire profile repository: %w", err)
	}

	return &base{config: loaded, logger: logger, profiles: repo, now: time.Now}, nil
}

// wireApp resolves the profile, opens its store and builds the services on
// top of it. The returned closer releases the store.
func wireApp(ctx context.Context, b *base, opts *rootOptions, httpClient *http.Client) (*app, func() error, error) {
	name := strings.TrimSpace(opts.profile)
	if name == "" {
		active, err := b.profiles.Active(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve active profile: %w", err)
		}
		name = active
	}

	profile, err := b.profiles.GetByName(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	baseURL := b.config.API.BaseURL
	if profile.APIBaseURL != "" {
		baseURL = strings.TrimRight(profile.APIBaseURL, "/")
	}

	backend := b.config.Store.Backend
	if profile.StoreBackend != "" {
		backend = profile.StoreBackend
	}
	if opts.ephemeral {
		backend = backendMemory
	}

	root, closeStore, err := openStore(ctx, backend, b.config.Store, b.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", backend, err)
	}

	store := scoped.ForProfile(root, profile.Name)
	logger := b.logger.With(zap.String("profile", profile.Name))

	session := application.NewSessionManager(store, logger)
	if err := session.Restore(ctx); err != nil {
		_ = closeStore()
		return nil, nil, fmt.Errorf("restore session: %w", err)
	}

	client := api.NewClient(api.NewPipeline(session, api.Options{
		BaseURL:    baseURL,
		HTTPClient: httpClient,
		Timeout:    b.config.API.Timeout,
		Logger:     logger,
	}))

	queue := application.NewVoteQueue(store, ports.SystemClock{}, logger)
	visitor := application.NewVisitor(store, nil)
	reconciler := application.NewReconciler(session, queue, client, logger)
	projector := application.NewLikedProjector(queue, client, b.config.Feed.PageSize, b.config.Feed.FetchConcurrency, logger)

	return &app{
		base:           b,
		profile:        profile,
		backend:        backend,
		session:        session,
		queue:          queue,
		visitor:        visitor,
		reconciler:     reconciler,
		auth:           application.NewAuthService(session, client, queue, reconciler, logger),
		votes:          application.NewVoteService(session, queue, client),
		feed:           application.NewFeedService(session, client, visitor, projector),
		share:          application.NewShareService(b.config.Site.Origin, visitor, client, logger),
		renderItems:    itemsrender.RenderItems,
		renderIdentity: itemsrender.RenderIdentity,
		renderQueue:    itemsrender.RenderQueue,
	}, closeStore, nil
}

func openStore(ctx context.Context, backend string, cfg config.StoreConfig, logger *zap.Logger) (ports.KeyValueStore, func() error, error) {
	noop := func() error { return nil }

	switch backend {
	case backendFile:
		return filestore.NewStore(cfg.Path), noop, nil
	case backendPass:
		return passstore.NewStore(cfg.PassPrefix), noop, nil
	case backendChain:
		store, err := chainstore.NewPassFirstWithFileFallback(cfg.PassPrefix, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case backendSQLite:
		store, err := sqlitestore.Open(ctx, filepath.Join(cfg.Path, sqliteFileName))
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case backendRedis:
		client, err := redisstore.Connect(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewStore(client), client.Close, nil
	case backendMemory:
		return memorystore.NewStore(), noop, nil
	default:
		return nil, nil, errors.New("unknown store backend " + backend)
	}
}
