package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"shopmanager/internal/config"
	"shopmanager/internal/database"
	"shopmanager/internal/handler"
	"shopmanager/internal/repository"
	"shopmanager/internal/router"
)

func main() {
	_ = godotenv.Load() // best-effort; real env vars win

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, login rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	reports := repository.NewReportRepo(db)

	a := handler.NewAuthHandler(cfg, users, tokens)
	u := handler.NewUserHandler(cfg, users)
	r := handler.NewReportHandler(reports)

	e := echo.New()
	router.Register(e, cfg, rdb, a, u, r)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
