package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/accounts"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/auth"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/aws"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/config"
	eventflow "github.com/imrishuroy/go-idempotent-eventflow/internal/events"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/handlers"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/idempotency"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/middleware"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/submissions"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/validation"
)

func setupRouter(cfg config.Config, logger zerolog.Logger, tokens *auth.TokenService, h handlers.HandlerConfig) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.CorrelationID(logger))
	r.Use(middleware.RequestLogging())
	r.Use(gin.Recovery())
	r.Use(middleware.Authenticate(middleware.NewAuthenticator(tokens, cfg.PublicRoutes)))

	handlers.RegisterOpsRoutes(r)
	handlers.RegisterRoutes(r, h)

	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger := config.NewLogger(cfg.Logging)
	zerolog.DefaultContextLogger = &logger

	clients, err := aws.NewAWSClients(context.Background(), aws.Settings{
		Region:      cfg.AWS.Region,
		Endpoint:    cfg.AWS.EndpointOverride,
		MaxAttempts: cfg.AWS.MaxAttempts,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init aws clients")
	}

	tokens := auth.NewTokenService(cfg.Auth.Secret, cfg.Auth.TTL, cfg.Auth.Issuer)
	ledger := idempotency.NewStore(clients.DynamoDB, cfg.Tables.Idempotency, cfg.ReservationTTL,
		idempotency.WithTimeout(cfg.Timeouts.Store))
	publisher := eventflow.NewPublisher(ledger, aws.NewPublisher(clients.SQS),
		eventflow.WithSendTimeout(cfg.Timeouts.Broker),
		eventflow.WithGapReporter(aws.NewMetricEmitter(clients.CloudWatch, cfg.MetricsNamespace)),
	)

	r := setupRouter(cfg, logger, tokens, handlers.HandlerConfig{
		Accounts: accounts.NewService(
			accounts.NewStore(clients.DynamoDB, cfg.Tables.Users, cfg.Timeouts.Store),
			auth.NewPasswordHasher(auth.BcryptCost),
			tokens,
			publisher,
			cfg.Queues.Users,
		),
		Submissions: submissions.NewService(publisher, cfg.Queues.Submissions),
		Validator:   validation.New(),
	})

	// if RUN_LOCAL is set to "true", run local HTTP server for development.
	if cfg.RunLocal {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("running local server")
		if err := r.Run(cfg.HTTPAddr); err != nil {
			logger.Fatal().Err(err).Msg("failed to run local server")
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
