// Package router wires handlers to routes and applies middleware in the
// required order: JWT authentication always runs before role enforcement.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"shopmanager/internal/config"
	"shopmanager/internal/handler"
	"shopmanager/internal/middleware"
	"shopmanager/internal/model"
)

// Register sets up all application routes on the provided Echo instance.
func Register(e *echo.Echo, cfg config.Config, rdb *redis.Client, a *handler.AuthHandler, u *handler.UserHandler, r *handler.ReportHandler) {
	e.GET("/healthz", handler.Health)

	// Public auth endpoints. Login carries the rate limiter; refresh is
	// self-limiting because each token works exactly once.
	authGroup := e.Group("/auth")
	authGroup.POST("/login", a.Login, middleware.LoginRateLimit(cfg.RateLimit, rdb))
	authGroup.POST("/refresh", a.Refresh)

	// Bearer-protected auth endpoints.
	me := e.Group("/auth")
	me.Use(middleware.JWTAuth(cfg.JWTSecret))
	me.GET("/me", a.Me)
	me.POST("/logout", a.Logout)

	// Account provisioning is admin-only; there is no self-service signup.
	users := e.Group("/users")
	users.Use(middleware.JWTAuth(cfg.JWTSecret))
	users.Use(middleware.RequireRole(model.RoleAdmin))
	users.POST("", u.Create)

	// Reports are admin-only.
	reports := e.Group("/reports")
	reports.Use(middleware.JWTAuth(cfg.JWTSecret))
	reports.Use(middleware.RequireRole(model.RoleAdmin))
	reports.GET("/revenue", r.Revenue)
	reports.GET("/top-products", r.TopProducts)
}
