package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/accounts"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/aws"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/config"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/consumer"
)

func main() {
	cfg, err := config.LoadWorker()
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

	c := consumer.New(
		accounts.NewStore(clients.DynamoDB, cfg.Tables.Users, cfg.Timeouts.Store),
		consumer.NewContactStore(clients.DynamoDB, cfg.Tables.Contacts, cfg.Timeouts.Store),
	)
	p := NewProcessor(c)

	// if RUN_LOCAL=true, long-poll the queues instead of waiting for the Lambda trigger
	if cfg.RunLocal {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logger.WithContext(ctx)

		g, ctx := errgroup.WithContext(ctx)
		for _, url := range []string{cfg.Queues.Users, cfg.Queues.Submissions} {
			if url == "" {
				continue
			}
			poller := aws.NewPoller(clients.SQS, url, cfg.WorkerConcurrency, logger)
			g.Go(func() error { return poller.Run(ctx, p.HandleMessage) })
			logger.Info().Str("queue_url", url).Msg("polling")
		}
		if err := g.Wait(); err != nil {
			logger.Fatal().Err(err).Msg("poller stopped")
		}
		return
	}

	lambda.Start(func(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
		return p.Handle(logger.WithContext(ctx), ev)
	})
}
