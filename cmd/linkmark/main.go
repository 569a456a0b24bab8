package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"linkmark/internal/ai"
	"linkmark/internal/config"
	"linkmark/internal/db"
	"linkmark/internal/filestore"
	"linkmark/internal/handler"
	"linkmark/internal/job"
	"linkmark/internal/mergeticket"
	"linkmark/internal/middleware"
	"linkmark/internal/oauth"
	"linkmark/internal/ratelimit"
	"linkmark/internal/repo"
	"linkmark/internal/schedule"
	"linkmark/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "linkmark",
		Short: "linkmark backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run linkmark server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.DB)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildProviders(cfg *config.Config) map[string]oauth.Provider {
	client := &http.Client{Timeout: 10 * time.Second}
	providers := map[string]oauth.Provider{}
	enabled := map[string]struct {
		on  bool
		cfg config.ProviderConfig
	}{
		"google": {cfg.Properties.EnableGoogleOauth, cfg.OAuth.Google},
		"github": {cfg.Properties.EnableGithubOauth, cfg.OAuth.Github},
	}
	for name, entry := range enabled {
		if !entry.on {
			continue
		}
		provider, err := oauth.NewProvider(name, oauth.ProviderArgs{Config: oauth.ProviderConfig{
			ClientID:     entry.cfg.ClientID,
			ClientSecret: entry.cfg.ClientSecret,
			RedirectURL:  entry.cfg.RedirectURL,
			Scopes:       entry.cfg.Scopes,
		}, Client: client})
		if err != nil {
			logutil.GetLogger(context.Background()).Error("init oauth provider failed",
				zap.String("provider", name), zap.Error(err))
			continue
		}
		providers[name] = provider
	}
	return providers
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
	)

	userRepo := repo.NewUserRepo(conn)
	bindingRepo := repo.NewBindingRepo(conn)
	sessionRepo := repo.NewSessionRepo(conn)
	bookmarkRepo := repo.NewBookmarkRepo(conn)
	fileRepo := repo.NewFileRepo(conn)
	identityStore := repo.NewIdentityStore(conn, bindingRepo)

	providers := buildProviders(cfg)
	providerNames := make([]string, 0, len(providers))
	for name := range providers {
		providerNames = append(providerNames, name)
	}

	sessionSecret := []byte(cfg.Session.Secret)
	sessionTTL := time.Duration(cfg.Session.TTLHours) * time.Hour
	authService := service.NewAuthService(userRepo, bindingRepo, sessionRepo, sessionSecret, sessionTTL, providers)
	mergeCodec := mergeticket.NewCodec([]byte(cfg.MergeSecret))
	mergeService := service.NewMergeService(identityStore, mergeCodec, providerNames)
	accountService := service.NewAccountService(userRepo, bindingRepo, identityStore)

	var generator ai.IGenerator
	if cfg.AI.Provider != "" {
		aiProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
		if err != nil {
			return fmt.Errorf("init ai provider: %w", err)
		}
		generator = ai.NewGenerator(aiProvider, cfg.AI.Model)
	}
	bookmarkService := service.NewBookmarkService(bookmarkRepo, generator)
	exportService := service.NewExportService(bookmarkRepo)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	fileService := service.NewFileService(fileRepo, store)

	mergeLimiter := ratelimit.New(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)

	deps := handler.RouterDeps{
		Auth:          handler.NewAuthHandler(authService, cfg.Session, cfg.PublicBaseURL),
		Accounts:      handler.NewAccountHandler(accountService, cfg.Session),
		Merge:         handler.NewMergeHandler(mergeService, authService, cfg.Session, cfg.PublicBaseURL),
		Bookmarks:     handler.NewBookmarkHandler(bookmarkService),
		Export:        handler.NewExportHandler(exportService),
		Files:         handler.NewFileHandler(fileService),
		Sessions:      sessionRepo,
		SessionCookie: cfg.Session.CookieName,
		SessionSecret: sessionSecret,
		MergeLimiter:  mergeLimiter,
	}

	engine, err := webapi.NewEngine(
		"/api",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewScheduler()
	if err := scheduler.AddJob(job.NewSessionCleanupJob(sessionRepo), cfg.Jobs.SessionCleanupSpec); err != nil {
		return fmt.Errorf("schedule session cleanup: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
