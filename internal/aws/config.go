package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// DefaultRegion is used when Settings.Region is empty.
const DefaultRegion = "us-east-1"

// Settings selects the region and, for local runs, an emulator endpoint
// such as LocalStack shared by every client.
type Settings struct {
	Region      string
	Endpoint    string
	MaxAttempts int // SDK retry budget per call; zero keeps the SDK default
}

// LoadAWSConfig resolves the shared AWS config from s and the default
// credential chain.
func LoadAWSConfig(ctx context.Context, s Settings) (sdkaws.Config, error) {
	region := s.Region
	if region == "" {
		region = DefaultRegion
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if s.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(s.Endpoint))
	}
	if s.MaxAttempts > 0 {
		opts = append(opts, config.WithRetryMaxAttempts(s.MaxAttempts))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return cfg, nil
}
