package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config はS3互換ストレージのアップロード先設定。
type S3Config struct {
	Bucket     string
	FolderPath string
	Region     string
	Endpoint   string
	AccessKey  string
	SecretKey  string
}

// putObjectAPI はS3Clientが使用するS3 APIの部分集合。
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Client はS3のPutObjectでファイルをアップロードするクライアント。
type S3Client struct {
	api    putObjectAPI
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3Client は静的クレデンシャルでS3クライアントを生成する。
// Endpointが指定された場合はパス形式でそのエンドポイントに接続する（MinIO等）。
func NewS3Client(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Client(client, cfg, logger), nil
}

func newS3Client(api putObjectAPI, cfg S3Config, logger *slog.Logger) *S3Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Client{
		api:    api,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.FolderPath, "/"),
		logger: logger,
	}
}

// Upload はオブジェクトを書き込む。同じキーのオブジェクトは上書きされる。
func (c *S3Client) Upload(ctx context.Context, fileName string, data []byte) error {
	key := c.key(fileName)

	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(ContentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put object failed: %w", err)
	}

	c.logger.Info("file uploaded to s3",
		slog.String("bucket", c.bucket),
		slog.String("key", key),
		slog.Int("bytes", len(data)),
	)
	return nil
}

func (c *S3Client) key(fileName string) string {
	if c.prefix == "" {
		return fileName
	}
	return path.Join(c.prefix, fileName)
}

var _ Uploader = (*S3Client)(nil)
