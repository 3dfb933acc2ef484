package baseline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectAPI is the subset of the S3 client used by S3Channel.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config configures an S3Channel. Endpoint and UsePathStyle are for
// S3-compatible stores such as MinIO. Without static keys the default AWS
// credential chain is used.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3Channel stores records as objects in a bucket.
type S3Channel struct {
	api    ObjectAPI
	bucket string
	prefix string
}

// NewS3Channel creates an S3Channel from cfg.
func NewS3Channel(ctx context.Context, cfg S3Config) (*S3Channel, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 baseline backend requires a bucket")
	}
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3ChannelWithAPI(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3ChannelWithAPI creates an S3Channel over an existing object API.
func NewS3ChannelWithAPI(api ObjectAPI, bucket, prefix string) *S3Channel {
	return &S3Channel{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// ObjectKey returns the object key used for key.
func (c *S3Channel) ObjectKey(key Key) string {
	return path.Join(c.prefix, key.Branch, key.Workflow, FileName)
}

// Put uploads data for key in a single request.
func (c *S3Channel) Put(ctx context.Context, key Key, data []byte) error {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(c.ObjectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("uploading s3://%s/%s: %w", c.bucket, c.ObjectKey(key), err)
	}
	return nil
}

// Get downloads the record stored for key.
func (c *S3Channel) Get(ctx context.Context, key Key) ([]byte, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.ObjectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3://%s/%s: %w", c.bucket, c.ObjectKey(key), ErrNotFound)
		}
		return nil, fmt.Errorf("downloading s3://%s/%s: %w", c.bucket, c.ObjectKey(key), err)
	}
	defer func() { _ = out.Body.Close() }()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading s3://%s/%s: %w", c.bucket, c.ObjectKey(key), err)
	}
	return data, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
