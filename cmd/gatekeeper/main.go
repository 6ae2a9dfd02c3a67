package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	adapthttp "gatekeeper/internal/adapter/http"
	"gatekeeper/internal/adapter/mail"
	"gatekeeper/internal/adapter/memory"
	"gatekeeper/internal/adapter/postgres"
	"gatekeeper/internal/app"
	"gatekeeper/internal/domain"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	addr := env("ADDR", ":8080")
	baseURL := env("BASE_URL", "http://localhost:8080")

	users, sessions, tokens, closeFn := openStores()
	defer closeFn()

	authSvc := app.NewAuthService(users, sessions,
		envDuration("SESSION_TTL", 24*time.Hour),
		envDuration("PERSISTENT_SESSION_TTL", 30*24*time.Hour))

	renderer, err := mail.NewRenderer()
	if err != nil {
		log.Fatalf("mail templates: %v", err)
	}
	resetSvc := app.NewResetService(users, tokens, sender(), renderer,
		baseURL, envDuration("RESET_TOKEN_TTL", app.DefaultResetTokenTTL))

	var oidcCfg *adapthttp.OIDCConfig
	if clientID := os.Getenv("GOOGLE_CLIENT_ID"); clientID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		oidcCfg, err = adapthttp.NewGoogleOIDC(ctx, clientID,
			os.Getenv("GOOGLE_CLIENT_SECRET"), baseURL+"/auth/google/callback")
		cancel()
		if err != nil {
			log.Fatalf("google oidc: %v", err)
		}
	} else {
		log.Println("GOOGLE_CLIENT_ID not set, federated sign-in disabled")
	}

	h := adapthttp.New(authSvc, resetSvc, oidcCfg).Handler()
	log.Printf("listening on %s", addr)
	if err := http.ListenAndServe(addr, h); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func openStores() (domain.UserRepository, domain.SessionRepository, domain.ResetTokenRepository, func()) {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		log.Println("DATABASE_URL not set, using in-memory stores")
		db := memory.New()
		return db, db.NewSessionRepo(), db.NewTokenRepo(), func() {}
	}

	db, err := postgres.Open(connStr)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	return db, postgres.NewSessionRepo(db), postgres.NewTokenRepo(db), func() { _ = db.Close() }
}

func sender() domain.Sender {
	smtpServer := os.Getenv("SMTP_SERVER")
	if smtpServer == "" {
		log.Println("SMTP_SERVER not set, logging emails instead of sending")
		return mail.LogSender{}
	}
	return &mail.SMTPSender{
		Addr:     smtpServer,
		Username: os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
