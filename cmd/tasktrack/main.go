// @title			TaskTrack API
// @version		1.0
// @description	Task tracker with a field-level audit history per task.
// @BasePath		/api/v1
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/tasktrack/internal/config"
	"github.com/mtlprog/tasktrack/internal/database"
	"github.com/mtlprog/tasktrack/internal/domain"
	"github.com/mtlprog/tasktrack/internal/handler"
	"github.com/mtlprog/tasktrack/internal/logger"
	"github.com/mtlprog/tasktrack/internal/memstore"
	"github.com/mtlprog/tasktrack/internal/middleware"
	"github.com/mtlprog/tasktrack/internal/notify"
	"github.com/mtlprog/tasktrack/internal/repository"
	"github.com/mtlprog/tasktrack/internal/service"
	"github.com/mtlprog/tasktrack/internal/store"
	"github.com/mtlprog/tasktrack/internal/textgen"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// newApp builds the command-line application.
func newApp() *cli.App {
	return &cli.App{
		Name:  "tasktrack",
		Usage: "Task tracker with per-task change history",
		// Running without a command serves, so the serve flags apply here too.
		Flags: append(append([]cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   config.DefaultLogFormat,
				Usage:   "Log format (json, text)",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Aliases: []string{"d"},
				Value:   config.DefaultDatabaseURL,
				Usage:   "PostgreSQL database URL",
				EnvVars: []string{"DATABASE_URL"},
			},
		}, serveFlags()...), jwtFlags()...),
		Before: func(c *cli.Context) error {
			logger.Setup(logger.ParseLevel(c.String("log-level")), c.String("log-format"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the web server",
				Flags:  append(serveFlags(), jwtFlags()...),
				Action: runServe,
			},
			{
				Name:      "migrate",
				Usage:     "Apply, roll back or inspect database migrations",
				ArgsUsage: "[up|down|status]",
				Action:    runMigrate,
			},
			{
				Name:  "issue-token",
				Usage: "Mint a bearer token for local use",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "sub",
						Usage:    "User id",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name",
					},
					&cli.StringFlag{
						Name:  "email",
						Usage: "Email address",
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Value: config.DefaultTokenTTL,
						Usage: "Token lifetime; 0 for no expiry",
					},
				}, jwtFlags()...),
				Action: runIssueToken,
			},
		},
		Action: runServe,
	}
}

// serveFlags returns fresh serve flags; root and serve each need their own.
func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Value:   config.DefaultPort,
			Usage:   "HTTP server port",
			EnvVars: []string{"PORT"},
		},
		&cli.StringFlag{
			Name:    "store",
			Value:   string(config.DefaultStore),
			Usage:   "Task store (postgres, memory)",
			EnvVars: []string{"STORE"},
		},
		&cli.BoolFlag{
			Name:    "anonymous",
			Usage:   "Single-user mode: no login, tasks are not scoped to an owner",
			EnvVars: []string{"ANONYMOUS"},
		},
		&cli.StringFlag{
			Name:    "textgen-provider",
			Value:   config.DefaultTextgenProvider,
			Usage:   "Text generation backend (anthropic, openai)",
			EnvVars: []string{"TEXTGEN_PROVIDER"},
		},
		&cli.StringFlag{
			Name:    "textgen-model",
			Usage:   "Model name; empty uses the provider default",
			EnvVars: []string{"TEXTGEN_MODEL"},
		},
		&cli.StringFlag{
			Name:    "anthropic-api-key",
			EnvVars: []string{"ANTHROPIC_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "openai-api-key",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
	}
}

func jwtFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "jwt-secret",
			Usage:   "HMAC secret for bearer tokens",
			EnvVars: []string{"JWT_SECRET"},
		},
		&cli.StringFlag{
			Name:    "jwt-issuer",
			Value:   config.DefaultJWTIssuer,
			Usage:   "Required token issuer",
			EnvVars: []string{"JWT_ISSUER"},
		},
	}
}

func runServe(c *cli.Context) error {
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	port := c.String("port")
	if port == "" {
		port = config.DefaultPort
	}
	storeName := c.String("store")
	if storeName == "" {
		storeName = string(config.DefaultStore)
	}
	kind, err := config.ParseStoreKind(storeName)
	if err != nil {
		return err
	}
	anonymous := c.Bool("anonymous")

	hub := notify.NewHub()
	defer hub.Close()

	var st store.Store
	switch kind {
	case config.StoreMemory:
		st = memstore.New(hub)
		slog.Info("using in-memory task store")
	case config.StorePostgres:
		databaseURL := c.String("database-url")
		if databaseURL == "" {
			return fmt.Errorf("database-url is required for the %s store", kind)
		}

		db, err := database.New(ctx, databaseURL, database.PoolConfig{MaxConns: 10, MinConns: 2})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err := database.RunMigrations(ctx, db.Pool()); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		st = repository.NewStore(db.Pool())
		go repository.NewListener(db.Pool(), hub).Run(ctx)
	}

	var tokens *middleware.TokenManager
	if secret := c.String("jwt-secret"); secret != "" {
		tokens, err = middleware.NewTokenManager(middleware.TokenConfig{
			Secret: secret,
			Issuer: c.String("jwt-issuer"),
		})
		if err != nil {
			return fmt.Errorf("failed to configure tokens: %w", err)
		}
	} else if !anonymous {
		return fmt.Errorf("jwt-secret is required unless --anonymous is set")
	}

	h := handler.New(handler.Deps{
		Service:   service.NewTaskService(st, service.Options{Anonymous: anonymous}),
		Store:     st,
		Hub:       hub,
		Auth:      middleware.NewAuthMiddleware(tokens, anonymous),
		Generator: newGenerator(c),
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
	// Stream connections are hijacked, so Shutdown does not wait for them.
	server.RegisterOnShutdown(h.CloseStreams)

	serverErr := make(chan error, 1)
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server",
			"server_addr", "http://localhost:"+port,
			"store", kind,
			"anonymous", anonymous,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-done:
		slog.Info("shutting down server")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// newGenerator returns nil when no API key is configured for the provider.
func newGenerator(c *cli.Context) textgen.Generator {
	provider := textgen.Provider(c.String("textgen-provider"))

	var key string
	switch provider {
	case textgen.ProviderOpenAI:
		key = c.String("openai-api-key")
	default:
		key = c.String("anthropic-api-key")
	}
	if key == "" {
		slog.Warn("text generation disabled: no API key", "provider", provider)
		return nil
	}

	gen, err := textgen.New(textgen.Config{
		Provider: provider,
		Model:    c.String("textgen-model"),
		APIKey:   key,
	})
	if err != nil {
		slog.Warn("text generation disabled", "provider", provider, "error", err)
		return nil
	}

	slog.Info("text generation enabled", "provider", gen.Provider())
	return gen
}

func runMigrate(c *cli.Context) error {
	ctx := c.Context

	direction := database.MigrateUp
	if c.Args().Present() {
		direction = database.MigrationDirection(c.Args().First())
	}

	databaseURL := c.String("database-url")
	if databaseURL == "" {
		return fmt.Errorf("database-url is required")
	}

	db, err := database.New(ctx, databaseURL, database.PoolConfig{MaxConns: 2})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	return database.Migrate(ctx, db.Pool(), direction)
}

func runIssueToken(c *cli.Context) error {
	tokens, err := middleware.NewTokenManager(middleware.TokenConfig{
		Secret:   c.String("jwt-secret"),
		Issuer:   c.String("jwt-issuer"),
		Duration: c.Duration("ttl"),
	})
	if err != nil {
		return err
	}

	token, err := tokens.Issue(domain.Identity{
		UserID:      c.String("sub"),
		DisplayName: c.String("name"),
		Email:       c.String("email"),
	})
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	fmt.Fprintln(c.App.Writer, token)
	return nil
}
