package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	contracthandler "rentaldocs/internal/contracts/handler"
	"rentaldocs/internal/contracts/convert"
	"rentaldocs/internal/contracts/events"
	"rentaldocs/internal/contracts/idempotency"
	"rentaldocs/internal/contracts/metrics"
	"rentaldocs/internal/contracts/parties"
	"rentaldocs/internal/contracts/service"
	"rentaldocs/internal/contracts/storage"
	"rentaldocs/internal/contracts/store"
	"rentaldocs/internal/contracts/template"
	"rentaldocs/internal/platform/config"
	"rentaldocs/internal/platform/httpserver"
	"rentaldocs/internal/platform/logger"
	"rentaldocs/internal/platform/middleware"
	"rentaldocs/internal/platform/postgres"
	platformredis "rentaldocs/internal/platform/redis"
	"rentaldocs/internal/templates"
	templatehandler "rentaldocs/internal/templates/handler"
)

// main wires the dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New()
	ctx := context.Background()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if rdb == nil {
		log.Warn("redis not configured, issuance lease disabled")
	} else {
		defer rdb.Close()
	}

	objects, err := storage.New(storage.Options{
		Endpoint:        cfg.Storage.Endpoint,
		AccessKey:       cfg.Storage.AccessKey,
		SecretKey:       cfg.Storage.SecretKey,
		UseSSL:          cfg.Storage.UseSSL,
		TemplatesBucket: cfg.Storage.TemplatesBucket,
		ContractsBucket: cfg.Storage.ContractsBucket,
	})
	if err != nil {
		log.Error("object storage unavailable", "error", err)
		os.Exit(1)
	}
	if err := objects.EnsureBuckets(ctx); err != nil {
		log.Error("bucket setup failed", "error", err)
		os.Exit(1)
	}

	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("kafka unavailable", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		publisher = kafka
	} else {
		log.Warn("kafka not configured, contract events stay local")
	}

	catalog, err := template.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Error("placeholder catalog unavailable", "error", err)
		os.Exit(1)
	}
	engine := template.NewEngine(catalog)

	var lease *idempotency.Lease
	if rdb != nil {
		lease = idempotency.NewLease(rdb.Client, 30*time.Second)
	}

	m := metrics.New()
	eventService := events.NewService(events.NewPostgresStore(db), publisher, log)
	partyService := parties.NewService(parties.NewPostgresStore(db))

	contractService := service.New(
		store.NewPostgresTemplateStore(db),
		store.NewPostgresContractStore(db),
		objects,
		convert.New(cfg.GotenbergURL, cfg.GotenbergTimeout),
		engine,
		lease,
		eventService,
		partyService,
		m,
		log,
		service.Options{
			IdempotencyWindow: cfg.IdempotencyWindow,
			SignedURLTTL:      cfg.SignedURLTTL,
		},
	)
	templateService := templates.New(
		store.NewPostgresTemplateStore(db),
		objects,
		engine,
		catalog,
		log,
		templates.Options{SignedURLTTL: cfg.SignedURLTTL},
	)

	contractHandler := contracthandler.New(contractService, log)
	templateHandler := templatehandler.New(templateService, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(log))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.RequireAuth(cfg.JWTSigningKey, log))
		contractHandler.Register(api)
		templateHandler.Register(api)
		api.Group(func(editor chi.Router) {
			editor.Use(middleware.RequireEditor)
			contractHandler.RegisterEditor(editor)
			templateHandler.RegisterEditor(editor)
		})
	})

	srv := httpserver.New(cfg.Addr, r)
	log.Info("starting rentaldocs server", "addr", cfg.Addr)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
