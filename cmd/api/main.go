package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/dpereira/expensely/internal/auth"
	"github.com/dpereira/expensely/internal/config"
	"github.com/dpereira/expensely/internal/database"
	"github.com/dpereira/expensely/internal/expense"
	expenseStore "github.com/dpereira/expensely/internal/expense/store"
	expenselyHttp "github.com/dpereira/expensely/internal/http"
	adminHandler "github.com/dpereira/expensely/internal/http/admin"
	authHandler "github.com/dpereira/expensely/internal/http/auth"
	expenseHandler "github.com/dpereira/expensely/internal/http/expense"
	"github.com/dpereira/expensely/internal/user"
	userStore "github.com/dpereira/expensely/internal/user/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	var (
		userService    = user.NewService(userStore.New(db))
		expenseService = expense.NewService(expenseStore.New(db))
		tokenService   = auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	)

	var (
		authH    = authHandler.NewHandler(userService, tokenService)
		expenseH = expenseHandler.NewHandler(expenseService, cfg.Uploads.Dir)
		adminH   = adminHandler.NewHandler(userService, expenseService)
	)

	router := expenselyHttp.New(authH, expenseH, adminH,
		auth.Authenticator(tokenService, userService), cfg.Uploads.Dir)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "app", cfg.App.Name, "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
