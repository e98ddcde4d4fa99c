// Package filestore keeps uploaded files in an S3 compatible object store.
package filestore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core"
)

// avatars are served straight from the bucket
const publicPrefix = "avatars/"

type minioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
	expiry  time.Duration
}

var _ core.FileStore = (*minioStore)(nil)

// NewMinioStore connects to the object store and makes sure the bucket exists with public avatars.
func NewMinioStore(ctx context.Context, conf core.StorageConfig) (core.FileStore, error) {
	client, err := minio.New(conf.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKey, conf.SecretKey, ""),
		Secure: conf.UseTLS,
		Region: conf.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating minio client")
	}

	exists, err := client.BucketExists(ctx, conf.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "checking bucket %s", conf.Bucket)
	}
	if !exists {
		if err = client.MakeBucket(ctx, conf.Bucket, minio.MakeBucketOptions{Region: conf.Region}); err != nil {
			return nil, errors.Wrapf(err, "creating bucket %s", conf.Bucket)
		}
	}
	if err = client.SetBucketPolicy(ctx, conf.Bucket, publicReadPolicy(conf.Bucket)); err != nil {
		return nil, errors.Wrapf(err, "setting bucket %s policy", conf.Bucket)
	}

	scheme := "http"
	if conf.UseTLS {
		scheme = "https"
	}
	return &minioStore{
		client:  client,
		bucket:  conf.Bucket,
		baseURL: fmt.Sprintf("%s://%s/%s", scheme, conf.Endpoint, conf.Bucket),
		expiry:  conf.PresignExpiry,
	}, nil
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{
  "Version": "2012-10-17",
  "Statement": [{
    "Effect": "Allow",
    "Principal": {"AWS": ["*"]},
    "Action": ["s3:GetObject"],
    "Resource": ["arn:aws:s3:::%s/%s*"]
  }]
}`, bucket, publicPrefix)
}

func (s *minioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	return errors.Wrapf(err, "putting object %s", key)
}

func (s *minioStore) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	return errors.Wrapf(err, "removing object %s", key)
}

func (s *minioStore) DownloadURL(ctx context.Context, key, filename string) (string, error) {
	if strings.Contains(key, "..") {
		return "", errors.Errorf("invalid object key %q", key)
	}
	params := make(url.Values)
	params.Set("response-content-disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, params)
	if err != nil {
		return "", errors.Wrapf(err, "presigning object %s", key)
	}
	return u.String(), nil
}

func (s *minioStore) PublicURL(key string) string {
	return s.baseURL + "/" + key
}
