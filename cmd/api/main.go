package main

import (
	"database/sql"
	"net/http"
	"time"

	"content-delivery/internal/config"
	"content-delivery/internal/content"
	"content-delivery/internal/engagement"
	contentPostgres "content-delivery/internal/platform/postgres"
	contentRedis "content-delivery/internal/platform/redis"

	_ "content-delivery/docs" // Import generated docs

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// @title           Content Delivery API
// @version         1.0
// @description     Content targeting & delivery decision engine with frequency capping and an engagement ledger. Redis & PostgreSQL.
// @host            localhost:8080
// @BasePath        /
func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	// 1. Init Redis Connection (Infra)
	rdb, err := contentRedis.NewClient(contentRedis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logrus.Fatalf("Could not initialize Redis: %v", err)
	}
	defer rdb.Close()
	logrus.Info("Redis connected")

	// 2. Init SQL Connection (Infra)
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Could not open SQL connection: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logrus.Fatalf("Could not connect to PostgreSQL: %v", err)
	}
	logrus.Info("PostgreSQL connected")

	// 3. Init Layers
	repo := contentRedis.NewRepository(rdb, time.Duration(cfg.CatalogTTLSeconds)*time.Second)
	store := contentPostgres.NewStore(db)
	ledger := contentPostgres.NewLedger(db)
	contentSvc := content.NewService(repo, store, ledger)

	eventStore := contentPostgres.NewEventStore(db)
	stateStore := contentPostgres.NewStateStore(db)
	engagementSvc := engagement.NewService(eventStore, stateStore)

	handler := NewHandler(contentSvc, engagementSvc)

	// 4. Routes
	mux := http.NewServeMux()

	// Client
	mux.HandleFunc("GET /v1/content", handler.GetEligibleContent)
	mux.HandleFunc("POST /v1/content/impression", handler.ReportImpression)
	mux.HandleFunc("POST /v1/content/click", handler.ReportClick)
	mux.HandleFunc("POST /v1/interactions", handler.RecordInteraction)
	mux.HandleFunc("GET /v1/engagement", handler.GetEngagement)

	// Admin
	mux.HandleFunc("POST /admin/content", handler.CreateItem)
	mux.HandleFunc("PUT /admin/content", handler.UpdateItem)
	mux.HandleFunc("DELETE /admin/content", handler.DeleteItem)
	mux.HandleFunc("GET /admin/content", handler.ListItems)
	mux.HandleFunc("GET /admin/content/detail", handler.GetItem)
	mux.HandleFunc("POST /admin/content/reset-impressions", handler.ResetImpressions)
	mux.HandleFunc("POST /admin/incentives", handler.CreateEvent)
	mux.HandleFunc("PUT /admin/incentives", handler.UpdateEvent)
	mux.HandleFunc("DELETE /admin/incentives", handler.DeleteEvent)
	mux.HandleFunc("GET /admin/incentives", handler.ListEvents)
	mux.HandleFunc("GET /admin/incentives/detail", handler.GetEvent)
	mux.HandleFunc("POST /admin/sync", handler.SyncCatalog)

	// Swagger
	mux.HandleFunc("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// 5. Start Server
	logrus.Infof("Content delivery service listening on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
		logrus.Fatal(err)
	}
}
