// Command spotify-shuffler runs the Spotify Shuffler web application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/justestif/go-spotify-shuffler/internal/auth"
	"github.com/justestif/go-spotify-shuffler/internal/cache"
	"github.com/justestif/go-spotify-shuffler/internal/config"
	"github.com/justestif/go-spotify-shuffler/internal/db"
	"github.com/justestif/go-spotify-shuffler/internal/logging"
	"github.com/justestif/go-spotify-shuffler/internal/playlist"
	"github.com/justestif/go-spotify-shuffler/internal/sampler"
	"github.com/justestif/go-spotify-shuffler/internal/session"
	"github.com/justestif/go-spotify-shuffler/internal/shuffle"
	"github.com/justestif/go-spotify-shuffler/internal/spotify"
	"github.com/justestif/go-spotify-shuffler/internal/web"
	webfs "github.com/justestif/go-spotify-shuffler/web"
)

func main() {
	app := &cli.Command{
		Name:  "spotify-shuffler",
		Usage: "Build random playlists from your Spotify Liked Songs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Address to listen on (overrides ADDR)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error (overrides LOG_LEVEL)",
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create the database tables and exit",
				Action: migrate,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the environment configuration and applies flag overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("addr") {
		cfg.Addr = cmd.String("addr")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	return cfg, nil
}

func migrate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	logging.New(os.Stderr, cfg.LogLevel).Info("database migrated")
	return nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, cfg.LogLevel)

	var (
		sessions session.Store = session.NewMemoryStore()
		history  shuffle.History
		users    web.Users
	)

	if cfg.DatabaseURL != "" {
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()

		if err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}

		if n, err := database.Sessions().DeleteExpired(ctx); err != nil {
			logger.Warn("deleting expired sessions", "err", err)
		} else if n > 0 {
			logger.Info("deleted expired sessions", "count", n)
		}

		sessions = session.NewDBStore(database)
		history = database.Playlists()
		users = database.Users()
		logger.Info("using postgres session store")
	}

	clientCfg := auth.ClientConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		AuthURL:      cfg.AuthURL,
		TokenURL:     cfg.TokenURL,
	}

	provider := spotify.New(
		spotify.WithBaseURL(cfg.APIURL),
		spotify.WithRateLimit(cfg.RateLimit),
		spotify.WithLogger(logger.With("component", "spotify")),
	)

	creds := auth.NewCredentials(sessions, auth.NewOAuthRefresher(clientCfg),
		auth.WithLogger(logger.With("component", "auth")),
	)

	samples := cache.New(provider,
		cache.WithTTL(cfg.CacheTTL),
		cache.WithWindowSize(cfg.WindowSize),
		cache.WithLogger(logger.With("component", "cache")),
	)

	svc := shuffle.New(shuffle.Deps{
		Credentials: creds,
		Cache:       samples,
		Sampler:     sampler.New(nil),
		Writer:      playlist.NewWriter(provider, logger.With("component", "playlist")),
		Lookup:      provider,
		Sessions:    sessions,
		History:     history,
		Logger:      logger.With("component", "shuffle"),
	})

	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}

	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:        cfg.Addr,
		TemplatesFS: templates,
		StaticFS:    static,
		Logger:      logger,
	}, web.Deps{
		Auth:     auth.NewAuthenticator(clientCfg),
		Profiles: provider,
		Users:    users,
		Sessions: sessions,
		Workflow: svc,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run()
}
