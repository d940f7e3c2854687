package coldstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/tiercache/pkg/storeerr"
)

// S3Config holds the cold store connection settings.
type S3Config struct {
	// Endpoint is host[:port] of the S3-compatible service
	Endpoint string

	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool

	// Bucket is the single namespace holding all synced objects
	Bucket string

	// Public makes the bucket anonymously readable and enables PublicURL
	Public bool

	// PublicBaseURL overrides the URL prefix used by PublicURL
	// (e.g. https://<project>.supabase.co/storage/v1/object/public/<bucket>).
	// Defaults to <endpoint>/<bucket>.
	PublicBaseURL string

	// Timeout bounds each request
	Timeout time.Duration
}

// DefaultS3Config returns defaults for a local MinIO.
func DefaultS3Config() S3Config {
	return S3Config{
		Endpoint: "localhost:9000",
		Bucket:   "f1-cache",
		Public:   true,
		Timeout:  30 * time.Second,
	}
}

// S3Store is a Store on an S3-compatible bucket.
type S3Store struct {
	client  *minio.Client
	config  S3Config
	baseURL string
	logger  zerolog.Logger
}

// NewS3Store creates a cold store client. It does not contact the service.
func NewS3Store(cfg S3Config, logger zerolog.Logger) (*S3Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("cold store endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("cold store bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		endpoint := client.EndpointURL()
		baseURL = endpoint.Scheme + "://" + endpoint.Host + "/" + cfg.Bucket
	}

	return &S3Store{
		client:  client,
		config:  cfg,
		baseURL: baseURL,
		logger:  logger,
	}, nil
}

// EnsureBucket creates the bucket and, for public stores, applies an anonymous
// read policy. An existing bucket is success.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	err := s.client.MakeBucket(ctx, s.config.Bucket, minio.MakeBucketOptions{Region: s.config.Region})
	if err != nil {
		err = classify("make bucket", err)
		if storeerr.KindOf(err) != storeerr.KindExists {
			ColdOperations.WithLabelValues("ensure_bucket", "error").Inc()
			return err
		}
		s.logger.Debug().Str("bucket", s.config.Bucket).Msg("Bucket already exists")
	} else {
		s.logger.Info().Str("bucket", s.config.Bucket).Msg("Bucket created")
	}

	if s.config.Public {
		if err := s.client.SetBucketPolicy(ctx, s.config.Bucket, publicReadPolicy(s.config.Bucket)); err != nil {
			ColdOperations.WithLabelValues("ensure_bucket", "error").Inc()
			return classify("set bucket policy", err)
		}
	}

	ColdOperations.WithLabelValues("ensure_bucket", "ok").Inc()
	return nil
}

// Upload creates name unless it already exists.
func (s *S3Store) Upload(ctx context.Context, name string, body io.Reader, size int64, opts UploadOptions) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	exists, err := s.exists(ctx, name)
	if err != nil {
		ColdOperations.WithLabelValues("upload", "error").Inc()
		return false, err
	}
	if exists {
		ColdOperations.WithLabelValues("upload", "exists").Inc()
		return false, nil
	}

	opts = opts.withDefaults(name)
	info, err := s.client.PutObject(ctx, s.config.Bucket, name, body, size, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	})
	if err != nil {
		err = classify("put object", err)
		// Lost a race with another writer of the same immutable object
		if storeerr.KindOf(err) == storeerr.KindExists {
			ColdOperations.WithLabelValues("upload", "exists").Inc()
			return false, nil
		}
		ColdOperations.WithLabelValues("upload", "error").Inc()
		return false, err
	}

	ColdOperations.WithLabelValues("upload", "ok").Inc()
	ColdTransferBytes.WithLabelValues("upload").Add(float64(info.Size))
	return true, nil
}

// Download reads the whole object.
func (s *S3Store) Download(ctx context.Context, name string) ([]byte, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	obj, err := s.client.GetObject(ctx, s.config.Bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.downloadFailed(classify("get object", err))
	}
	defer obj.Close()

	// GetObject is lazy; missing objects surface on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.downloadFailed(classify("read object", err))
	}

	ColdOperations.WithLabelValues("download", "ok").Inc()
	ColdTransferBytes.WithLabelValues("download").Add(float64(len(data)))
	return data, nil
}

func (s *S3Store) downloadFailed(err error) error {
	if storeerr.IsNotFound(err) {
		ColdOperations.WithLabelValues("download", "not_found").Inc()
	} else {
		ColdOperations.WithLabelValues("download", "error").Inc()
	}
	return err
}

// List returns every object in the bucket, recursing through prefixes.
func (s *S3Store) List(ctx context.Context) ([]ObjectInfo, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var infos []ObjectInfo
	for obj := range s.client.ListObjects(ctx, s.config.Bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			ColdOperations.WithLabelValues("list", "error").Inc()
			return nil, classify("list objects", obj.Err)
		}
		// Directory placeholders some consoles create
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		infos = append(infos, ObjectInfo{
			Name:         obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}

	ColdOperations.WithLabelValues("list", "ok").Inc()
	return infos, nil
}

// PublicURL returns <base>/<escaped name> for public buckets.
func (s *S3Store) PublicURL(name string) (string, bool) {
	if !s.config.Public || name == "" {
		return "", false
	}
	return s.baseURL + "/" + escapePath(name), true
}

// Ping checks that the bucket is reachable.
func (s *S3Store) Ping(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ok, err := s.client.BucketExists(ctx, s.config.Bucket)
	if err != nil {
		return classify("bucket exists", err)
	}
	if !ok {
		return storeerr.New("bucket exists", storeerr.KindNotFound, fmt.Errorf("bucket %q", s.config.Bucket))
	}
	return nil
}

func (s *S3Store) exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.config.Bucket, name, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	err = classify("stat object", err)
	if storeerr.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *S3Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.Timeout)
}

// classify maps S3 error codes onto store failure kinds. "Already exists" is
// recognised by code and, for services that only report it in the message,
// by message text.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound", "NoSuchObject":
		return storeerr.New(op, storeerr.KindNotFound, err)
	case "BucketAlreadyOwnedByYou", "BucketAlreadyExists", "Duplicate", "KeyAlreadyExists":
		return storeerr.New(op, storeerr.KindExists, err)
	case "InvalidBucketName", "InvalidObjectName", "XMinioInvalidObjectName":
		return storeerr.New(op, storeerr.KindInvalid, err)
	}

	if isAlreadyExists(err) {
		return storeerr.New(op, storeerr.KindExists, err)
	}
	return storeerr.Wrap(op, err)
}

func isAlreadyExists(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}
