package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/latent-app/latent-api/internal/config"
	"github.com/latent-app/latent-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/latent-app/latent-api/internal/infrastructure/jwt"
	s3infra "github.com/latent-app/latent-api/internal/infrastructure/s3"
	"github.com/latent-app/latent-api/internal/infrastructure/smtp"
	"github.com/latent-app/latent-api/internal/infrastructure/sns"
	"github.com/latent-app/latent-api/internal/jobs"
	"github.com/latent-app/latent-api/internal/pkg/otp"
	transporthttp "github.com/latent-app/latent-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("JWT provider: %v", err)
	}

	// Recovery code generator. Without a configured secret, codes issued
	// before a restart stop verifying after it.
	secret := cfg.OTPSecret
	if secret == "" {
		secret, err = otp.NewSecret()
		if err != nil {
			log.Fatalf("generate OTP secret: %v", err)
		}
		log.Println("WARN: OTP_SECRET not set, using a process-lifetime secret")
	}
	codes := otp.New(secret)

	// S3 store for house images.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender. An empty region disables SMS dispatch.
	var smsSender sns.SMSSender
	if cfg.SNSRegion != "" {
		sender, err := sns.NewSender(cfg)
		if err != nil {
			log.Printf("WARN: SNS sender not available: %v", err)
		} else {
			smsSender = sender
		}
	}

	tenantRepo := dynamo.NewTenantRepo(dynamoClient, cfg.DynamoTables.Tenants)
	agentRepo := dynamo.NewAgentRepo(dynamoClient, cfg.DynamoTables.Agents)
	notificationRepo := dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications)

	// Background queue for emails, SMS and dispatch records.
	dispatcher := jobs.NewDispatcher(mailer, smsSender, tenantRepo, agentRepo, notificationRepo)
	queue := jobs.NewQueue(dispatcher.Handle, 4, 256)
	queue.Start()

	deps := &transporthttp.Deps{
		TenantRepo:       tenantRepo,
		AgentRepo:        agentRepo,
		HouseRepo:        dynamo.NewHouseRepo(dynamoClient, cfg.DynamoTables.Houses),
		RatingRepo:       dynamo.NewRatingRepo(dynamoClient, cfg.DynamoTables.Ratings),
		SessionRepo:      dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		BindingRepo:      dynamo.NewBindingRepo(dynamoClient, cfg.DynamoTables.RecoveryBindings),
		NotificationRepo: notificationRepo,
		S3Store:          s3Store,
		Mailer:           mailer,
		SMSSender:        smsSender,
		JWTProvider:      jwtProvider,
		Codes:            codes,
		Queue:            queue,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	queue.Stop()
	log.Println("Server stopped")
}
