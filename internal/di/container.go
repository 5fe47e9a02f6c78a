package di

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/samber/do/v2"
	"github.com/samber/oops"

	accessRepo "github.com/khaingmyozaw/file-search-bot/internal/modules/access/repository"
	accessService "github.com/khaingmyozaw/file-search-bot/internal/modules/access/service"
	feedService "github.com/khaingmyozaw/file-search-bot/internal/modules/feed/service"
	ingestService "github.com/khaingmyozaw/file-search-bot/internal/modules/ingest/service"
	postRepo "github.com/khaingmyozaw/file-search-bot/internal/modules/post/repository"
	"github.com/khaingmyozaw/file-search-bot/internal/modules/search/index"
	searchService "github.com/khaingmyozaw/file-search-bot/internal/modules/search/service"
	"github.com/khaingmyozaw/file-search-bot/internal/router"
	"github.com/khaingmyozaw/file-search-bot/internal/shared/config"
	"github.com/khaingmyozaw/file-search-bot/internal/shared/sqlite"
	httpServer "github.com/khaingmyozaw/file-search-bot/internal/transport/http"
	telegramHandler "github.com/khaingmyozaw/file-search-bot/internal/transport/telegram"
)

// Setup initializes the dependency injection container
func Setup() (do.Injector, error) {
	injector := do.New()

	// Register Config
	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	// Register SQLite database
	do.Provide(injector, func(i do.Injector) (*sql.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		db, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, oops.With("db_path", cfg.DBPath, "context", "failed to open database").Wrap(err)
		}
		return db, nil
	})

	// Register Post Repository
	do.Provide(injector, func(i do.Injector) (postRepo.Repository, error) {
		db := do.MustInvoke[*sql.DB](i)
		repo, err := postRepo.NewSQLite(db)
		if err != nil {
			return nil, oops.With("context", "failed to initialize post repository").Wrap(err)
		}
		return repo, nil
	})

	// Register Access Repository
	do.Provide(injector, func(i do.Injector) (accessRepo.Repository, error) {
		db := do.MustInvoke[*sql.DB](i)
		repo, err := accessRepo.NewSQLite(db)
		if err != nil {
			return nil, oops.With("context", "failed to initialize access repository").Wrap(err)
		}
		return repo, nil
	})

	// Register Search Index
	do.Provide(injector, func(i do.Injector) (*index.Index, error) {
		cfg := do.MustInvoke[*config.Config](i)
		idx, err := index.Open(cfg.IndexPath)
		if err != nil {
			return nil, oops.With("index_path", cfg.IndexPath, "context", "failed to open search index").Wrap(err)
		}
		return idx, nil
	})

	// Register Access Service
	do.Provide(injector, func(i do.Injector) (*accessService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[accessRepo.Repository](i)
		svc, err := accessService.New(repo, cfg.OwnerUserID, cfg.PurgeOnRevoke)
		if err != nil {
			return nil, oops.With("context", "failed to initialize access service").Wrap(err)
		}
		return svc, nil
	})

	// Register Ingest Service (also acts as the post purger for revocations)
	do.Provide(injector, func(i do.Injector) (*ingestService.Service, error) {
		access := do.MustInvoke[*accessService.Service](i)
		posts := do.MustInvoke[postRepo.Repository](i)
		idx := do.MustInvoke[*index.Index](i)
		svc := ingestService.New(access, posts, idx)
		access.SetPurger(svc)
		return svc, nil
	})

	// Register Search Service
	do.Provide(injector, func(i do.Injector) (*searchService.Service, error) {
		idx := do.MustInvoke[*index.Index](i)
		posts := do.MustInvoke[postRepo.Repository](i)
		return searchService.New(idx, posts), nil
	})

	// Register Feed Service
	do.Provide(injector, func(i do.Injector) (*feedService.Service, error) {
		access := do.MustInvoke[*accessService.Service](i)
		posts := do.MustInvoke[postRepo.Repository](i)
		return feedService.New(access, posts), nil
	})

	// Register Telegram Handler
	do.Provide(injector, func(i do.Injector) (*telegramHandler.Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return telegramHandler.New(cfg), nil
	})

	// Register Router (the telegram handler doubles as the channel resolver)
	do.Provide(injector, func(i do.Injector) (*router.Router, error) {
		cfg := do.MustInvoke[*config.Config](i)
		access := do.MustInvoke[*accessService.Service](i)
		ingest := do.MustInvoke[*ingestService.Service](i)
		search := do.MustInvoke[*searchService.Service](i)
		posts := do.MustInvoke[postRepo.Repository](i)
		handler := do.MustInvoke[*telegramHandler.Handler](i)

		r := router.New(cfg, access, ingest, search, posts, handler)
		handler.SetRouter(r)
		return r, nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		feedSvc := do.MustInvoke[*feedService.Service](i)
		searchSvc := do.MustInvoke[*searchService.Service](i)
		server := httpServer.New(cfg, feedSvc, searchSvc)
		server.SetLogger(slog.Default())
		return server, nil
	})

	// Register Bot (needs to be initialized after handlers are ready)
	do.Provide(injector, func(i do.Injector) (*bot.Bot, error) {
		cfg := do.MustInvoke[*config.Config](i)
		handler := do.MustInvoke[*telegramHandler.Handler](i)
		do.MustInvoke[*router.Router](i)

		opts := []bot.Option{
			bot.WithDefaultHandler(handler.HandleUpdate),
		}

		b, err := bot.New(cfg.TelegramBotToken, opts...)
		if err != nil {
			return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
		}

		// Register bot commands
		handler.RegisterCommands(b)

		// The handler resolves channel metadata through the bot API
		handler.SetBot(b)

		return b, nil
	})

	return injector, nil
}

// Shutdown gracefully shuts down all services
func Shutdown(injector do.Injector) error {
	ctx := context.Background()

	// Shutdown bot if it exists
	if b, err := do.Invoke[*bot.Bot](injector); err == nil && b != nil {
		b.Close(ctx)
	}

	// Close the search index if it exists
	if idx, err := do.Invoke[*index.Index](injector); err == nil && idx != nil {
		idx.Close()
	}

	// Close the database if it exists
	if db, err := do.Invoke[*sql.DB](injector); err == nil && db != nil {
		db.Close()
	}

	return nil
}
