// Command main is the entry point for the Grapevine backend server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grapevine/internal/bootstrap"
	"grapevine/internal/config"
	"grapevine/internal/mail"
	"grapevine/internal/middleware"
	"grapevine/internal/observability"
	"grapevine/internal/server"
	"grapevine/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.TracingEnabled {
		shutdownTracing, tracingErr := observability.InitTracing(observability.TracingConfig{
			ServiceName:    "grapevine-api",
			ServiceVersion: "1.0.0",
			Environment:    cfg.Env,
			Enabled:        true,
			Exporter:       cfg.TracingTarget,
		})
		if tracingErr != nil {
			log.Printf("Tracing init failed, continuing without tracing: %v", tracingErr)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdownTracing(ctx)
			}()
		}
	}

	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{EnsureAdmin: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	store, err := storage.NewDiskStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize upload storage: %v", err)
	}

	var mailer mail.Sender
	if cfg.SMTPHost != "" {
		mailer = &mail.SMTPSender{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}
	} else {
		mailer = &mail.LogSender{Logger: middleware.Logger}
	}

	srv, err := server.NewServerWithDeps(cfg, db, rdb, store, mailer)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
