// minio.go - Optional S3-compatible archive of stored uploads.
//
// When configured, every stored upload is mirrored to a bucket so the
// upload directory can be rebuilt after a disk loss. The portal remains
// filesystem-first: the archive is never read on the serving path.
package server

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archive mirrors stored uploads to an S3-compatible bucket.
type Archive struct {
	client *minio.Client
	bucket string
	prefix string
}

func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	// Accept either "minio:9000" or "http://minio:9000" / "https://minio:9000".
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		secure = (u.Scheme == "https")
		return u.Host, secure, nil
	}

	// No scheme provided, treat as host:port (insecure by default for local MinIO).
	return raw, false, nil
}

// NewArchiveFromEnv builds the archive client from UPL_S3_* variables.
// With none of them set the archive is disabled and (nil, nil) is
// returned; a partially configured group is an error.
func NewArchiveFromEnv() (*Archive, error) {
	rawEndpoint := os.Getenv("UPL_S3_ENDPOINT")
	accessKey := os.Getenv("UPL_S3_ACCESS_KEY")
	secretKey := os.Getenv("UPL_S3_SECRET_KEY")
	bucket := os.Getenv("UPL_S3_BUCKET")

	if rawEndpoint == "" && accessKey == "" && secretKey == "" && bucket == "" {
		return nil, nil
	}
	if rawEndpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, fmt.Errorf("archive configuration incomplete: UPL_S3_ENDPOINT, UPL_S3_ACCESS_KEY, UPL_S3_SECRET_KEY, and UPL_S3_BUCKET must all be set")
	}

	endpoint, secure, err := normaliseEndpoint(rawEndpoint)
	if err != nil {
		return nil, fmt.Errorf("parse UPL_S3_ENDPOINT: %w", err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create archive client: %w", err)
	}

	return &Archive{
		client: client,
		bucket: bucket,
		prefix: os.Getenv("UPL_S3_PREFIX"),
	}, nil
}

// Store copies the stored file at localPath into the bucket under the
// stored name.
func (a *Archive) Store(ctx context.Context, name, localPath, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := name
	if a.prefix != "" {
		key = path.Join(a.prefix, name)
	}
	_, err := a.client.FPutObject(ctx, a.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// Ping verifies the bucket exists and is reachable.
func (a *Archive) Ping(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", a.bucket)
	}
	return nil
}
