package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Ianszzkieyyy/sitsmart-app/internal/api"
	"github.com/Ianszzkieyyy/sitsmart-app/internal/config"
	"github.com/Ianszzkieyyy/sitsmart-app/internal/notify"
	"github.com/Ianszzkieyyy/sitsmart-app/internal/redis"
	"github.com/Ianszzkieyyy/sitsmart-app/internal/service/tracker"
	"github.com/Ianszzkieyyy/sitsmart-app/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	cfg, err := config.Load(os.Getenv("SITSMART_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("SITSMART_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	var cache *redis.Client
	if cfg.Redis.Host != "" {
		cache, err = redis.NewClient(cfg)
		if err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		defer cache.Close()
	}

	mailer := notify.NewMailer(cfg.SMTP)
	dispatcher := notify.NewDispatcher(mailer, notify.DispatcherConfig{
		MinWorkers:        cfg.BasicConfig.MinWorkers,
		MaxWorkers:        cfg.BasicConfig.MaxWorkers,
		QueueSize:         cfg.BasicConfig.QueueSize,
		WorkerIdleTimeout: time.Duration(cfg.BasicConfig.WorkerIdleTimeout) * time.Minute,
	})

	service := tracker.NewService(db, cache, dispatcher)
	handler := api.NewHandler(service)

	router := gin.Default()
	handler.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}
	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
