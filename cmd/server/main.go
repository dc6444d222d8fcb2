package main

import (
	"context"
	"database/sql"
	"encoding/base64"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/outreach-engine/internal/api"
	"github.com/ignite/outreach-engine/internal/auth"
	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/keystore"
	"github.com/ignite/outreach-engine/internal/prompts"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Printf("Server: Connected to database")

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("Server: Redis unavailable, rate limiting disabled: %v", err)
			redisClient = nil
		} else {
			log.Printf("Server: Connected to Redis at %s", cfg.Redis.Addr)
		}
	}

	masterKey, err := base64.StdEncoding.DecodeString(cfg.Crypto.MasterKey)
	if err != nil {
		log.Fatalf("Failed to decode KEYSTORE_MASTER_KEY: %v", err)
	}
	keys, err := keystore.NewStore(db, masterKey)
	if err != nil {
		log.Fatalf("Failed to initialize keystore: %v", err)
	}

	promptMgr := prompts.NewManager(
		prompts.NewSQLTemplateStore(db),
		prompts.NewCache(cfg.AI.CacheTTL()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var authManager *auth.Manager
	if cfg.Auth.Enabled {
		authManager = auth.NewManager(&cfg.Auth, cfg.Server.BaseURL)
		authManager.CleanupExpiredSessions(ctx)
	} else {
		log.Printf("Server: Auth disabled, API is open")
	}

	server := api.NewServer(cfg, db, redisClient, authManager, promptMgr, keys)

	go func() {
		if err := server.Start(); err != nil {
			log.Printf("Server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Printf("Server: Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server: Shutdown error: %v", err)
		os.Exit(1)
	}
	log.Printf("Server: Stopped")
}
