package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/contacts-api/internal/auth"
	"gitlab.com/dirk.krummacker/contacts-api/internal/config"
	"gitlab.com/dirk.krummacker/contacts-api/internal/logger"
	"gitlab.com/dirk.krummacker/contacts-api/internal/ratelimit"
	"gitlab.com/dirk.krummacker/contacts-api/internal/service"
	"gitlab.com/dirk.krummacker/contacts-api/internal/store"
)

// Usage example on the command line:
// > PORT=8080 DBHOST=localhost:3306 DBUSER=dirk DBPWD=bullo92 JWT_SECRET=s3cr3t GIN_MODE=release go run main.go
// > STORAGE=memory JWT_SECRET=s3cr3t go run main.go
func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Println("invalid configuration:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Println("could not create logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := setupDependencies(ctx, cfg, log)
	if err != nil {
		log.Fatal("could not set up service", "error", err)
	}
	defer cleanup()

	gin.SetMode(cfg.GinMode)
	router := service.SetupHttpRouter(service.Options{
		APIPrefix:      cfg.APIPrefix,
		RequestLogging: cfg.RequestLogging(),
		CORSOrigins:    cfg.CORSOrigins,
		TrustedProxies: cfg.TrustedProxies,
	}, deps)

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()

	log.Info("contacts service listening", "port", cfg.Port, "storage", cfg.Storage, "prefix", cfg.APIPrefix)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server stopped", "error", err)
	}
	log.Info("contacts service stopped")
}

// setupDependencies connects the storage and the rate limiter selected by cfg. The returned
// function releases them.
func setupDependencies(ctx context.Context, cfg config.Config, log *logger.Logger) (service.Dependencies, func(), error) {
	deps := service.Dependencies{Log: log}
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("cleanup failed", "error", err)
			}
		}
	}

	var users store.UserStore
	switch cfg.Storage {
	case "memory":
		memoryUsers := store.NewMemoryUserStore()
		users = memoryUsers
		deps.Contacts = store.NewMemoryContactStore(time.Now)
		if err := printDevelopmentToken(ctx, cfg, memoryUsers); err != nil {
			return deps, cleanup, err
		}
	default:
		db, err := service.CreateDatabase(cfg)
		if err != nil {
			return deps, cleanup, err
		}
		closers = append(closers, db.Close)
		contacts, err := store.NewSQLContactStore(ctx, db)
		if err != nil {
			cleanup()
			return deps, func() {}, err
		}
		closers = append(closers, contacts.Close)
		users = store.NewSQLUserStore(db)
		deps.Contacts = contacts
		deps.Ping = db.PingContext
	}
	deps.Users = auth.NewResolver(cfg.JWTSecret, users)

	if cfg.RedisAddr != "" {
		rdb, err := ratelimit.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			cleanup()
			return deps, func() {}, err
		}
		closers = append(closers, rdb.Close)
		deps.Limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimitTimes, cfg.RateLimitWindow)
	} else {
		deps.Limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitTimes, cfg.RateLimitWindow)
	}
	return deps, cleanup, nil
}

// printDevelopmentToken registers a user in the in-memory store and prints a bearer token for it,
// since there is no other way to get a user into a fresh memory store.
func printDevelopmentToken(ctx context.Context, cfg config.Config, users store.UserStore) error {
	user, err := users.CreateUser(ctx, "dev@localhost")
	if err != nil {
		return err
	}
	token, err := auth.NewResolver(cfg.JWTSecret, users).IssueToken(user, cfg.TokenTTL)
	if err != nil {
		return err
	}
	fmt.Println("Development user", user.Email, "bearer token:", token)
	return nil
}
