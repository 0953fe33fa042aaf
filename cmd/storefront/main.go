package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_storefront/internal/admin"
	"github.com/fjod/go_storefront/internal/cache"
	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/config"
	"github.com/fjod/go_storefront/internal/docstore"
	h "github.com/fjod/go_storefront/internal/http"
	"github.com/fjod/go_storefront/internal/poller"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open document store: %v", err)
	}
	defer closeStore()

	if cfg.BreakerEnabled {
		store = docstore.NewBreakerStore(store, docstore.BreakerSettings{Name: cfg.StoreDriver})
		log.Printf("circuit breaker enabled for %s store", cfg.StoreDriver)
	}

	var cartOpts []cart.Option
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("Redis ping failed, running without cart cache: %v", err)
		} else {
			log.Printf("Redis ping succeeded")
			cartOpts = append(cartOpts, cart.WithCache(cache.NewRedisCache(redisClient)))
		}
	}

	cartProvider := cart.NewProvider(store, cfg.CartCollection, cartOpts...)
	if err := cartProvider.Start(ctx); err != nil {
		log.Fatalf("Failed to start cart subscription: %v", err)
	}
	defer cartProvider.Close()

	manager := admin.NewManager(store, cfg.AdminCollection)
	if err := manager.Load(ctx); err != nil {
		log.Printf("failed to load admin products: %v", err)
	}

	editor := catalog.NewEditor(store, catalog.Collections{
		Original: cfg.OriginalCollection,
		Extra:    cfg.ExtraCollection,
	})
	if err := editor.Load(ctx); err != nil {
		log.Printf("failed to load catalog: %v", err)
	}

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	if len(cfg.KafkaBrokers) > 0 {
		p := poller.NewPoller(cartProvider, cfg.KafkaBrokers...)
		defer p.Close()
		go p.Run(pollCtx)
		log.Printf("checkout poller consuming %s from %v", poller.Topic, cfg.KafkaBrokers)
	}

	router := h.NewRouter(h.RouterConfig{
		Admin:          h.NewAdminHandler(manager, cfg.RequestTimeout),
		Catalog:        h.NewCatalogHandler(editor, cfg.RequestTimeout),
		Cart:           h.NewCartHandler(cartProvider, cfg.RequestTimeout),
		AdminJWTSecret: cfg.AdminJWTSecret,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     otelhttp.NewHandler(router, "storefront"),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Storefront starting on :%s (%s store)", cfg.HTTPPort, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	stopPolling()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}

func openStore(ctx context.Context, cfg *config.Config) (docstore.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		db, err := docstore.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Connected to MongoDB at %s", cfg.MongoURI)
		return docstore.NewMongoStore(db), func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				log.Printf("failed to disconnect MongoDB: %v", err)
			}
		}, nil

	case config.DriverSQLite, config.DriverPostgres:
		driver := docstore.DriverSQLite
		if cfg.StoreDriver == config.DriverPostgres {
			driver = docstore.DriverPostgres
		}
		s, err := docstore.OpenSQLStore(driver, cfg.SQLDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := s.RunMigrations(); err != nil {
			s.Close()
			return nil, nil, err
		}
		log.Printf("Connected to %s store", driver)
		return s, func() { s.Close() }, nil

	default:
		s := docstore.NewMemoryStore()
		return s, func() { s.Close() }, nil
	}
}
