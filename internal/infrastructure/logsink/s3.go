// Package logsink ships audit lines to a daily object in S3.
package logsink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Config describes the target bucket and how to reach it. Endpoint is set
// for S3-compatible stores such as LocalStack and implies path-style URLs.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Bucket          string
}

// s3API is the subset of *s3.Client used by S3Appender.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3Appender appends lines to logs/app-log-YYYY-MM-DD.log. S3 objects are
// immutable, so each append reads the current object and writes it back;
// callers must serialise appends.
type S3Appender struct {
	client s3API
	bucket string
	region string
	now    func() time.Time
}

// NewS3Appender builds an S3 client from cfg. Static credentials are used
// when both keys are set, otherwise the default AWS credential chain applies.
func NewS3Appender(ctx context.Context, cfg Config) (*S3Appender, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Appender(client, cfg.Bucket, cfg.Region), nil
}

func newS3Appender(client s3API, bucket, region string) *S3Appender {
	return &S3Appender{client: client, bucket: bucket, region: region, now: time.Now}
}

// ObjectKey returns the object that receives lines written at t.
func ObjectKey(t time.Time) string {
	return "logs/app-log-" + t.UTC().Format(time.DateOnly) + ".log"
}

// EnsureBucket creates the bucket, treating an existing one as success.
func (a *S3Appender) EnsureBucket(ctx context.Context) error {
	in := &s3.CreateBucketInput{Bucket: aws.String(a.bucket)}
	if a.region != "" && a.region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(a.region),
		}
	}

	_, err := a.client.CreateBucket(ctx, in)
	if err == nil {
		return nil
	}
	var owned *types.BucketAlreadyOwnedByYou
	var exists *types.BucketAlreadyExists
	if errors.As(err, &owned) || errors.As(err, &exists) {
		return nil
	}
	return fmt.Errorf("create bucket %s: %w", a.bucket, err)
}

// AppendLines adds lines, newline terminated, to today's object. Line breaks
// inside a line are escaped.
func (a *S3Appender) AppendLines(ctx context.Context, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	key := ObjectKey(a.now())

	existing, err := a.read(ctx, key)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.Write(existing)
	for _, line := range lines {
		buf.WriteString(lineEscaper.Replace(strings.TrimRight(line, "\r\n")))
		buf.WriteByte('\n')
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (a *S3Appender) read(ctx context.Context, key string) ([]byte, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}
