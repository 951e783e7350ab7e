package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
	domain "github.com/fredericlb/BespokeSynthPatches/internal/domain/patch"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/metrics"
)

// S3Mirror copies approved patches to S3-compatible storage under
// "patches/<uuid>/<name>". A mirror without a bucket is a no-op.
type S3Mirror struct {
	bucket   string
	client   *s3.Client
	log      zerolog.Logger
	disabled bool
}

func NewS3Mirror(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*S3Mirror, error) {
	logger := log.With().Str("component", "s3-mirror").Logger()
	mirror := &S3Mirror{
		bucket: cfg.S3Bucket,
		log:    logger,
	}

	if !cfg.IsS3MirrorEnabled() {
		logger.Info().Msg("PATCHES_S3_BUCKET is not set; approved patches will not be mirrored")
		mirror.disabled = true
		return mirror, nil
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.S3Endpoint != "" {
			return aws.Endpoint{
				URL:           cfg.S3Endpoint,
				PartitionID:   "aws",
				SigningRegion: cfg.S3Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretKey, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	mirror.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
	})
	return mirror, nil
}

// MirrorPatch uploads every staged file of p found in dir.
func (m *S3Mirror) MirrorPatch(ctx context.Context, p *domain.Patch, dir string) error {
	if m.disabled {
		return nil
	}

	start := time.Now()
	for _, name := range p.StagedFiles() {
		if err := m.upload(ctx, ObjectKey(p.UUID, name), filepath.Join(dir, name)); err != nil {
			metrics.RecordMirror("error", time.Since(start).Seconds())
			return fmt.Errorf("mirror %s: %w", name, err)
		}
	}
	metrics.RecordMirror("success", time.Since(start).Seconds())

	m.log.Info().Str("patch_uuid", p.UUID).Str("bucket", m.bucket).Msg("approved patch mirrored")
	return nil
}

func (m *S3Mirror) upload(ctx context.Context, key, fullPath string) error {
	file, err := os.Open(fullPath)
	if err != nil {
		return err
	}
	defer file.Close()

	contentType := mime.TypeByExtension(filepath.Ext(fullPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	return err
}

// Health performs a HeadBucket request when mirroring is enabled.
func (m *S3Mirror) Health(ctx context.Context) error {
	if m.disabled {
		return nil
	}
	_, err := m.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(m.bucket)})
	return err
}

// ObjectKey is the bucket key of a mirrored file.
func ObjectKey(patchID, name string) string {
	return path.Join("patches", patchID, name)
}
