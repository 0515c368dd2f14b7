// Package cdn invalidates cached API responses after the watch list is
// republished.
package cdn

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/google/uuid"
	"github.com/moviediary/watchlog/internal/config"
	"github.com/moviediary/watchlog/internal/pkg/logger"
)

// CloudFrontAPI is the subset of the CloudFront client used here.
type CloudFrontAPI interface {
	CreateInvalidation(ctx context.Context, in *cloudfront.CreateInvalidationInput, opts ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
}

// Invalidator busts the CDN cache for a fixed set of paths. A nil
// *Invalidator is valid and does nothing.
type Invalidator struct {
	client         CloudFrontAPI
	distributionID string
	paths          []string
}

// New builds an invalidator from cfg, or returns nil when no distribution
// is configured.
func New(ctx context.Context, cfg config.CDNConfig) (*Invalidator, error) {
	if cfg.DistributionID == "" {
		return nil, nil
	}
	// CloudFront is a global service; its API lives in us-east-1.
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion("us-east-1"))
	if err != nil {
		return nil, fmt.Errorf("loading CloudFront AWS config: %w", err)
	}
	return NewWithClient(cloudfront.NewFromConfig(awsCfg), cfg.DistributionID, cfg.Paths), nil
}

// NewWithClient wires an invalidator around an existing client.
func NewWithClient(client CloudFrontAPI, distributionID string, paths []string) *Invalidator {
	return &Invalidator{client: client, distributionID: distributionID, paths: paths}
}

// Enabled reports whether invalidations will be sent.
func (i *Invalidator) Enabled() bool {
	return i != nil && i.distributionID != "" && len(i.paths) > 0
}

// Invalidate creates an invalidation for the configured paths and returns
// its id. It returns "" without error when disabled.
func (i *Invalidator) Invalidate(ctx context.Context) (string, error) {
	if !i.Enabled() {
		return "", nil
	}
	out, err := i.client.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(i.distributionID),
		InvalidationBatch: &types.InvalidationBatch{
			CallerReference: aws.String("watchlog-" + uuid.New().String()),
			Paths: &types.Paths{
				Quantity: aws.Int32(int32(len(i.paths))),
				Items:    i.paths,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("creating invalidation on %s: %w", i.distributionID, err)
	}

	id := ""
	if out.Invalidation != nil {
		id = aws.ToString(out.Invalidation.Id)
	}
	logger.Info("cdn invalidation created", "distribution", i.distributionID, "invalidation", id, "paths", len(i.paths))
	return id, nil
}
