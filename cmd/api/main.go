package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/Producao-api/internal/application/batch"
	"github.com/jhoicas/Producao-api/internal/application/erpsync"
	"github.com/jhoicas/Producao-api/internal/application/ingest"
	"github.com/jhoicas/Producao-api/internal/infrastructure/erp"
	"github.com/jhoicas/Producao-api/internal/infrastructure/mailbox"
	"github.com/jhoicas/Producao-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Producao-api/internal/interfaces/http"
	"github.com/jhoicas/Producao-api/pkg/config"
	"github.com/jhoicas/Producao-api/pkg/logger"
	"github.com/jhoicas/Producao-api/pkg/secret"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
		App:   cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Bool("erp", cfg.ERP.Enabled()).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	configRepo := postgres.NewImapConfigRepository(pool)
	ledgerRepo := postgres.NewImportLedgerRepository(pool)
	branchRepo := postgres.NewBranchRepository(pool)
	productRepo := postgres.NewProductionProductRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	batchUC := batch.NewUseCase(txRunner, branchRepo, postgres.NewFiscalDocumentRepository(pool), log)

	// ERP: solo si hay credenciales. Sin ERP las rutas de sync responden 503.
	var syncUC *erpsync.SyncUseCase
	if cfg.ERP.Enabled() {
		httpClient := &http.Client{Timeout: cfg.ERP.Timeout}
		refresher := erp.NewOAuthRefresher(cfg.ERP.TokenURL, cfg.ERP.ClientID, cfg.ERP.ClientSecret, cfg.ERP.RefreshToken, httpClient)
		erpClient := erp.NewClient(cfg.ERP.BaseURL, erp.NewTokenCache(refresher), cfg.ERP.Timeout, log)
		syncUC = erpsync.NewSyncUseCase(productRepo, erpsync.NewUploader(erpClient, log), cfg.ERP.Concurrency, log)
	}

	importOpts := ingest.Options{DefaultParseTimeout: cfg.IMAP.DefaultParseTimeout}
	if cfg.Secret.CredentialKey != "" {
		box, err := secret.New(cfg.Secret.CredentialKey)
		if err != nil {
			log.Fatal().Err(err).Msg("clave de credenciales")
		}
		importOpts.Secrets = box
	}
	if cfg.ERP.AutoSync && syncUC != nil {
		importOpts.AutoSync = syncUC
	}
	resolver := ingest.NewResolver(
		postgres.NewClientRepository(pool),
		branchRepo,
		postgres.NewSupplierRepository(pool),
	)
	importUC := ingest.NewImportUseCase(
		configRepo, ledgerRepo,
		ingest.IMAPDialer{D: mailbox.NewDialer(cfg.IMAP.DialTimeout)},
		resolver, batchUC, log, importOpts,
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Minute * 5, // una corrida de importación puede tardar
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Produção API",
	}))

	deps := httpRouter.RouterDeps{
		Import:    importUC,
		Batches:   batchUC,
		Configs:   configRepo,
		Ledger:    ledgerRepo,
		DB:        pool,
		JWTSecret: cfg.JWT.Secret,
	}
	if syncUC != nil {
		deps.ERP = syncUC
	}
	httpRouter.Router(app, deps)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
