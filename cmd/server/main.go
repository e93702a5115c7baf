package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4" // Echo web framework

	"membership-platform/internal/auth"
	"membership-platform/internal/config"
	"membership-platform/internal/database"
	"membership-platform/internal/handler"
	"membership-platform/internal/middleware"
	"membership-platform/internal/queue"
	"membership-platform/internal/repository"
	"membership-platform/internal/router"
)

func main() {
	_ = godotenv.Load() // best-effort .env; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	// Redis backs the token blacklist and login throttling.  A nil client
	// disables both instead of failing startup.
	var cache auth.Cache
	if rdb := config.NewRedisClient(); rdb != nil {
		cache = auth.NewRedisCache(rdb)
	} else {
		log.Printf("redis unavailable; blacklist and login throttling disabled")
	}

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	companies := repository.NewCompanyRepo(db)

	codec := auth.NewTokenCodec(cfg.JWTSecret, cfg.Env)
	blacklist := auth.NewBlacklistStore(cache)
	limiter := auth.NewLoginLimiter(cache)
	svc := auth.NewService(users, sessions, companies, codec, blacklist, limiter, cfg.BcryptCost)

	// Audit consumer for member.events; reconnects on its own.
	go func() {
		if err := queue.StartMemberConsumer(); err != nil {
			log.Printf("member consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e,
		handler.NewAuthHandler(svc),
		handler.NewUserHandler(svc),
		middleware.IdentityGate(codec, users, blacklist),
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
