package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// ErrPageNotArchived is returned when no raw page exists for a page number
var ErrPageNotArchived = errors.New("page not archived")

// PageArchive stores the raw catalog index pages exactly as fetched
type PageArchive interface {
	PutPage(ctx context.Context, page int, body []byte) (string, error)
	GetPage(ctx context.Context, page int) ([]byte, error)
	TestConnection(ctx context.Context) error
}

type pageArchive struct {
	s3     *s3.Client
	bucket string
	prefix string
}

func NewPageArchive(accessKey, secretKey, bucketName, region, prefix string) (PageArchive, error) {
	credProvider := aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     accessKey,
			SecretAccessKey: secretKey,
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credProvider),
	)
	if err != nil {
		return nil, err
	}

	return &pageArchive{
		s3:     s3.NewFromConfig(cfg),
		bucket: bucketName,
		prefix: prefix,
	}, nil
}

// PageKey is the object key of an archived index page
func PageKey(prefix string, page int) string {
	return fmt.Sprintf("%sshows_page_%d.json", prefix, page)
}

func (s *pageArchive) PutPage(ctx context.Context, page int, body []byte) (string, error) {
	key := PageKey(s.prefix, page)
	start := time.Now()

	uploader := manager.NewUploader(s.s3)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Int("page", page).Msg("Failed to archive page")
		return "", err
	}

	log.Debug().
		Str("key", key).
		Int("page", page).
		Int("size", len(body)).
		Dur("duration", time.Since(start)).
		Msg("Archived page")

	return key, nil
}

func (s *pageArchive) GetPage(ctx context.Context, page int) ([]byte, error) {
	key := PageKey(s.prefix, page)

	buf := manager.NewWriteAtBuffer([]byte{})
	downloader := manager.NewDownloader(s.s3)
	_, err := downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return nil, ErrPageNotArchived
		}
		log.Error().Err(err).Str("key", key).Msg("Failed to read archived page")
		return nil, err
	}

	return buf.Bytes(), nil
}

func (s *pageArchive) TestConnection(ctx context.Context) error {
	// Only fetch 1 key to minimize data transfer
	_, err := s.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		log.Error().Err(err).Str("bucket", s.bucket).Msg("AWS S3 test connection failed")
	}

	return err
}
