package s3

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/de-tools/market-atlas/pkg/artifacts"
	"github.com/rs/zerolog"
)

const DefaultRegion = "us-east-1"

type Settings struct {
	Bucket string
	Prefix string
	Region string
	// Profile selects a shared AWS config profile. Empty uses the default chain.
	Profile string
}

// PutObjectAPI is the part of the S3 client the publisher needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher copies the artifacts of a run to an S3 bucket.
type Publisher struct {
	client PutObjectAPI
	bucket string
	prefix string
}

func NewPublisher(ctx context.Context, settings Settings) (*Publisher, error) {
	if settings.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	region := settings.Region
	if region == "" {
		region = DefaultRegion
	}
	opts := []func(*config.LoadOptions) error{config.WithDefaultRegion(region)}
	if settings.Region != "" {
		opts = append(opts, config.WithRegion(settings.Region))
	}
	if settings.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(settings.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	return NewPublisherWithClient(s3.NewFromConfig(awsCfg), settings), nil
}

func NewPublisherWithClient(client PutObjectAPI, settings Settings) *Publisher {
	return &Publisher{
		client: client,
		bucket: settings.Bucket,
		prefix: strings.Trim(settings.Prefix, "/"),
	}
}

// Key is the object key of filename for the run stamped ts.
func (p *Publisher) Key(ts, filename string) string {
	return path.Join(p.prefix, ts, filename)
}

// Publish uploads every artifact of manifest and returns the object keys in manifest order.
// It stops at the first failed upload; keys uploaded before it are returned with the error.
func (p *Publisher) Publish(ctx context.Context, manifest *artifacts.Manifest) ([]string, error) {
	if manifest == nil {
		return nil, nil
	}

	logger := zerolog.Ctx(ctx)
	keys := make([]string, 0, len(manifest.Locations))
	for _, loc := range manifest.Locations {
		key := p.Key(manifest.Timestamp, loc.Filename)
		if err := p.upload(ctx, loc.Path, key); err != nil {
			return keys, err
		}
		keys = append(keys, key)
		logger.Info().Str("bucket", p.bucket).Str("key", key).Msg("artifact published")
	}
	return keys, nil
}

func (p *Publisher) upload(ctx context.Context, filePath, key string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open artifact %s: %w", filePath, err)
	}
	defer f.Close()

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      awssdk.String(p.bucket),
		Key:         awssdk.String(key),
		Body:        f,
		ContentType: awssdk.String(artifacts.ContentType(filePath)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", p.bucket, key, err)
	}
	return nil
}
