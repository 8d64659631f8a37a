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

	"github.com/joho/godotenv"

	"github.com/medtrack/clinic-service/internal/auth"
	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/httpapi"
	"github.com/medtrack/clinic-service/internal/messaging"
	"github.com/medtrack/clinic-service/internal/telemetry"
)

func main() {
	log.Println("clinic-service starting")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx := context.Background()

	// OpenTelemetry first so the store and router pick up the global providers.
	otelProvider, err := telemetry.InitProvider(ctx, telemetry.LoadConfig())
	if err != nil {
		log.Printf("Warning: OpenTelemetry init failed: %v", err)
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Printf("Warning: metrics init failed: %v", err)
		metrics = nil
	}

	store, err := docstore.Open()
	if err != nil {
		log.Fatalf("Failed to connect to document store: %v", err)
	}
	defer store.Close()

	publisher, err := messaging.NewPublisher()
	if err != nil {
		log.Printf("Warning: RabbitMQ unavailable, events disabled: %v", err)
		publisher = nil
	} else {
		defer publisher.Close()
	}

	authCfg := auth.LoadConfig()
	jwks, err := auth.NewJWKS(authCfg.JWKSURL, 0)
	if err != nil {
		log.Fatalf("Failed to load JWKS from %s: %v", authCfg.JWKSURL, err)
	}
	defer jwks.Close()
	verifier := auth.NewVerifier(authCfg, jwks)

	provider, err := auth.NewKeycloakClient()
	if err != nil {
		log.Fatalf("Failed to initialize Keycloak client: %v", err)
	}

	permsPath := os.Getenv("PERMISSIONS_FILE")
	if permsPath == "" {
		permsPath = "permissions.yml"
	}
	perms, err := auth.LoadPermissions(permsPath)
	if err != nil {
		log.Fatalf("Failed to load permissions from %s: %v", permsPath, err)
	}

	router := httpapi.SetupRouter(httpapi.Dependencies{
		Store:     store,
		Verifier:  verifier,
		Perms:     perms,
		Provider:  provider,
		Publisher: publisher,
		Metrics:   metrics,
		Watcher:   auth.NewWatcher(),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      httpapi.CORSMiddleware(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if otelProvider != nil {
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			log.Printf("Telemetry shutdown error: %v", err)
		}
	}

	log.Println("Server stopped")
}
