package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/MrSnakeDoc/dockmetrics/internal/utils"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3API is the subset of the S3 client used here, so tests can inject a fake.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ S3API = (*s3.Client)(nil)

// S3Options configures the AWS client.
type S3Options struct {
	Region       string
	Endpoint     string // ex: http://localhost:4566 for localstack
	UsePathStyle bool
}

// NewS3Client builds an S3 client from the default credential chain.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	}), nil
}

// S3Store keeps submissions in an S3 bucket.
type S3Store struct {
	client S3API
	bucket string
}

// NewS3Store wraps an S3 client.
func NewS3Store(client S3API, bucket string) (*S3Store, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: nil s3 client", ErrInvalidInput)
	}
	if bucket == "" {
		return nil, fmt.Errorf("%w: empty bucket name", ErrInvalidInput)
	}
	return &S3Store{client: client, bucket: bucket}, nil
}

func (s *S3Store) Backend() string { return "s3" }

func (s *S3Store) Put(ctx context.Context, obj Object) error {
	if err := validatePut(obj); err != nil {
		return newError("put", s.bucket, obj.Key, err)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(obj.Key),
		Body:          bytes.NewReader(obj.Body),
		ContentLength: aws.Int64(int64(len(obj.Body))),
		ContentType:   aws.String(ContentTypeJSON),
		Metadata:      metadataOf(obj),
	})
	if err != nil {
		return newError("put", s.bucket, obj.Key, translateS3Error(err))
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) (Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Object{}, newError("get", s.bucket, key, translateS3Error(err))
	}
	defer utils.Close(out.Body)

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return Object{}, newError("get", s.bucket, key, err)
	}

	obj := Object{
		Key:         key,
		Owner:       metaValue(out.Metadata, MetaOwner),
		Description: metaValue(out.Metadata, MetaDescription),
		ContentType: aws.ToString(out.ContentType),
		Body:        body,
		Size:        int64(len(body)),
	}
	if out.LastModified != nil {
		obj.LastModified = *out.LastModified
	}
	return obj, nil
}

// List pages through every object of a version.
func (s *S3Store) List(ctx context.Context, trsID, version string) ([]ObjectInfo, error) {
	prefix := VersionPrefix(trsID, version)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var infos []ObjectInfo
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, newError("list", s.bucket, prefix, translateS3Error(err))
		}
		for _, o := range page.Contents {
			info, ok := infoFor(aws.ToString(o.Key), aws.ToInt64(o.Size), aws.ToTime(o.LastModified))
			if ok {
				infos = append(infos, info)
			}
		}
	}
	sortInfos(infos)
	return infos, nil
}

func translateS3Error(err error) error {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return fmt.Errorf("%w: %v", ErrObjectNotFound, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %v", ErrObjectNotFound, err)
		}
		return fmt.Errorf("%s: %s: %w", apiErr.ErrorCode(), apiErr.ErrorMessage(), err)
	}
	return err
}
