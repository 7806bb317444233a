// Package archive uploads a completed tournament's final results to S3-compatible
// object storage (AWS S3, Cloudflare R2, MinIO), so results survive outside the
// database and can be linked from the club website.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/trentd187/idpa-match/internal/badges"
	"github.com/trentd187/idpa-match/internal/ranking"
)

// Results is the archived document.
type Results struct {
	TournamentID uuid.UUID            `json:"tournament_id"`
	Name         string               `json:"name"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
	Overall      []ranking.Entry      `json:"overall"`
	Badges       []badges.Eligibility `json:"badges"`
}

// Uploader is the subset of *s3.Client the archiver uses.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config selects the bucket and how to reach it. Endpoint is only needed for
// non-AWS providers; empty keys fall back to the default AWS credential chain.
type Config struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

type S3Archiver struct {
	client Uploader
	bucket string
}

// New builds an S3 client from cfg.
func New(ctx context.Context, cfg Config) (*S3Archiver, error) {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load object storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg.Bucket), nil
}

func NewWithClient(client Uploader, bucket string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket}
}

// Key is the object key for a tournament's results, e.g.
// "results/spring-classic-2026-<id>.json".
func Key(name string, tournamentID uuid.UUID) string {
	s := slug.Make(name)
	if s == "" {
		return fmt.Sprintf("results/%s.json", tournamentID)
	}
	return fmt.Sprintf("results/%s-%s.json", s, tournamentID)
}

// Archive uploads r as JSON, overwriting any earlier upload for the tournament.
func (a *S3Archiver) Archive(ctx context.Context, r Results) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(Key(r.Name, r.TournamentID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload results: %w", err)
	}
	return nil
}
