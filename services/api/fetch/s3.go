package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds construction parameters for the s3:// fetcher.
type S3Config struct {
	Region    string
	Endpoint  string // optional; enables S3-compatible stores such as MinIO
	PathStyle bool
}

// objectGetter is the subset of the S3 client used here.
type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 fetches s3://bucket/key URLs with the default AWS credential chain.
type S3 struct {
	client objectGetter
}

// NewS3 builds an S3 fetcher.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3{client: client}, nil
}

// Fetch implements Fetcher. S3 responses are always reported as 200;
// service errors are returned as errors.
func (f *S3) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	bucket, key, err := splitS3URL(rawURL)
	if err != nil {
		return nil, err
	}
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	total := int64(-1)
	if out.ContentLength != nil {
		total = *out.ContentLength
	}
	return &Response{Body: out.Body, Status: 200, Total: total}, nil
}

func splitS3URL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse url: %w", err)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 url %q needs bucket and key", rawURL)
	}
	return bucket, key, nil
}
