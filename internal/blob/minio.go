package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/MrSnakeDoc/dockmetrics/internal/utils"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioOptions configures a MinIO (or any S3-compatible) endpoint.
type MinioOptions struct {
	Endpoint  string // host:port, no scheme
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	Bucket    string
}

// MinioStore keeps submissions in a MinIO bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore creates the client. It does not contact the server.
func NewMinioStore(opts MinioOptions) (*MinioStore, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("%w: empty minio endpoint", ErrInvalidInput)
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("%w: empty bucket name", ErrInvalidInput)
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioStore{client: client, bucket: opts.Bucket}, nil
}

func (m *MinioStore) Backend() string { return "minio" }

func (m *MinioStore) Put(ctx context.Context, obj Object) error {
	if err := validatePut(obj); err != nil {
		return newError("put", m.bucket, obj.Key, err)
	}
	_, err := m.client.PutObject(ctx, m.bucket, obj.Key,
		bytes.NewReader(obj.Body), int64(len(obj.Body)),
		minio.PutObjectOptions{
			ContentType:  ContentTypeJSON,
			UserMetadata: metadataOf(obj),
		})
	if err != nil {
		return newError("put", m.bucket, obj.Key, translateMinioError(err))
	}
	return nil
}

func (m *MinioStore) Get(ctx context.Context, key string) (Object, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return Object{}, newError("get", m.bucket, key, translateMinioError(err))
	}
	defer utils.Close(obj)

	// errors such as NoSuchKey only surface on the first read
	body, err := io.ReadAll(obj)
	if err != nil {
		return Object{}, newError("get", m.bucket, key, translateMinioError(err))
	}
	stat, err := obj.Stat()
	if err != nil {
		return Object{}, newError("get", m.bucket, key, translateMinioError(err))
	}

	return Object{
		Key:          key,
		Owner:        metaValue(stat.UserMetadata, MetaOwner),
		Description:  metaValue(stat.UserMetadata, MetaDescription),
		ContentType:  stat.ContentType,
		Body:         body,
		Size:         stat.Size,
		LastModified: stat.LastModified,
	}, nil
}

func (m *MinioStore) List(ctx context.Context, trsID, version string) ([]ObjectInfo, error) {
	prefix := VersionPrefix(trsID, version)
	var infos []ObjectInfo
	for o := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if o.Err != nil {
			return nil, newError("list", m.bucket, prefix, translateMinioError(o.Err))
		}
		if info, ok := infoFor(o.Key, o.Size, o.LastModified); ok {
			infos = append(infos, info)
		}
	}
	sortInfos(infos)
	return infos, nil
}

func translateMinioError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("%w: %v", ErrObjectNotFound, err)
	}
	return err
}
