package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/frahmantamala/task-management/internal"
	"github.com/frahmantamala/task-management/internal/auth"
	authpostgres "github.com/frahmantamala/task-management/internal/auth/postgres"
	"github.com/frahmantamala/task-management/internal/core/events"
	"github.com/frahmantamala/task-management/internal/mailer"
	"github.com/frahmantamala/task-management/internal/organization"
	orgpostgres "github.com/frahmantamala/task-management/internal/organization/postgres"
	"github.com/frahmantamala/task-management/internal/task"
	taskpostgres "github.com/frahmantamala/task-management/internal/task/postgres"
	"github.com/frahmantamala/task-management/internal/transport/rest"
	"github.com/frahmantamala/task-management/internal/user"
	userpostgres "github.com/frahmantamala/task-management/internal/user/postgres"
	"github.com/frahmantamala/task-management/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config     *internal.Config
	DB         *sqlx.DB
	Router     *chi.Mux
	MailClient *mailer.Client
	Logger     *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		deps.MailClient.Stop()
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	tokens := auth.NewJWTTokenGenerator(
		config.Security.JWTSecret,
		config.Security.SessionTTL,
		config.Security.OAuthStateTTL,
	)

	googleProvider := auth.NewGoogleProvider(
		config.OAuth.GoogleClientID,
		config.OAuth.GoogleClientSecret,
		config.OAuth.GoogleRedirectURL,
		&http.Client{Timeout: 10 * time.Second},
	)

	eventBus := events.NewEventBus(log)

	mailClient := mailer.NewClient(mailer.Config{
		APIURL:     config.Mail.APIURL,
		APIKey:     config.Mail.APIKey,
		FromEmail:  config.Mail.FromEmail,
		Timeout:    config.Mail.Timeout,
		MaxWorkers: config.Mail.MaxWorkers,
		QueueSize:  config.Mail.QueueSize,
	}, log)
	mailClient.Start()
	mailer.NewEventHandler(mailClient, config.Frontend.BaseURL, log).RegisterHandlers(eventBus)

	authRepo := authpostgres.NewAuthRepository(gormDB)
	authService := auth.NewService(authRepo, tokens, googleProvider, config.Security.BCryptCost, log)
	authHandler := auth.NewHandler(authService, config.Frontend.BaseURL)

	orgRepo := orgpostgres.NewOrganizationRepository(gormDB)
	orgService := organization.NewService(orgRepo, authRepo, tokens, eventBus, log)
	orgHandler := organization.NewHandler(orgService)

	taskService := task.NewService(taskpostgres.NewTaskRepository(gormDB), orgService, log)
	taskHandler := task.NewHandler(taskService)

	userService := user.NewService(userpostgres.NewUserRepository(gormDB), orgService, log)
	userHandler := user.NewHandler(userService)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(
		router,
		db.DB,
		authHandler,
		orgHandler,
		taskHandler,
		userHandler,
		splitOrigins(config.Server.AllowedOrigins),
		log,
	)

	return &Dependencies{
		Config:     config,
		DB:         db,
		Router:     router,
		MailClient: mailClient,
		Logger:     log,
	}, nil
}

func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

func splitOrigins(origins string) []string {
	if strings.TrimSpace(origins) == "" {
		return nil
	}
	parts := strings.Split(origins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
