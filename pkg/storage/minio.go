/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
)

// MinioProvider serves s3:// URIs through a MinIO/S3 endpoint.
type MinioProvider struct {
	client *minio.Client
}

var (
	_ Provider  = &MinioProvider{}
	_ URLSigner = &MinioProvider{}
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

func NewMinioProvider(cfg *MinioConfig) (*MinioProvider, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.NewStorageErrorf("failed to create MinIO client: %v", err)
	}
	return &MinioProvider{client: client}, nil
}

func splitBucketURI(uri string) (string, string, error) {
	rest, found := strings.CutPrefix(uri, "s3://")
	if !found {
		rest, found = strings.CutPrefix(uri, "gs://")
	}
	if !found {
		return "", "", errors.NewStorageErrorf("URI %q is not a bucket URI", uri)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", errors.NewStorageErrorf("URI %q has no bucket or object key", uri)
	}
	return bucket, key, nil
}

func (p *MinioProvider) DownloadBytes(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := splitBucketURI(uri)
	if err != nil {
		return nil, err
	}
	object, err := p.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.NewStorageErrorf("failed to get object %q: %v", uri, err)
	}
	defer object.Close()
	data, err := io.ReadAll(object)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errors.NewItemNotFoundWithMessage("Object " + uri + " not found.")
		}
		return nil, errors.NewStorageErrorf("failed to read object %q: %v", uri, err)
	}
	return data, nil
}

func (p *MinioProvider) DownloadText(ctx context.Context, uri string) (string, error) {
	data, err := p.DownloadBytes(ctx, uri)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (p *MinioProvider) UploadBytes(ctx context.Context, uri string, data []byte) error {
	bucket, key, err := splitBucketURI(uri)
	if err != nil {
		return err
	}
	_, err = p.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return errors.NewStorageErrorf("failed to upload object %q: %v", uri, err)
	}
	return nil
}

func (p *MinioProvider) UploadText(ctx context.Context, uri string, text string) error {
	return p.UploadBytes(ctx, uri, []byte(text))
}

func (p *MinioProvider) GetInfo(ctx context.Context, uri string) (*ArtifactInfo, error) {
	bucket, key, err := splitBucketURI(uri)
	if err != nil {
		return nil, err
	}
	stat, err := p.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err == nil {
		hash, err := p.objectMD5(ctx, bucket, key, stat)
		if err != nil {
			return nil, err
		}
		return &ArtifactInfo{
			TotalSize: stat.Size,
			IsDir:     false,
			Hashes:    map[string]string{HashAlgorithmMD5: hash},
		}, nil
	}
	if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return nil, errors.NewStorageErrorf("failed to stat object %q: %v", uri, err)
	}
	return p.prefixInfo(ctx, bucket, key, uri)
}

// objectMD5 prefers the ETag. Multipart uploads have composite ETags, so
// those objects are hashed by streaming their content.
func (p *MinioProvider) objectMD5(ctx context.Context, bucket, key string, stat minio.ObjectInfo) (string, error) {
	etag := strings.Trim(stat.ETag, `"`)
	if len(etag) == 32 && !strings.Contains(etag, "-") {
		return strings.ToLower(etag), nil
	}
	object, err := p.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", errors.NewStorageErrorf("failed to get object for hashing: %v", err)
	}
	defer object.Close()
	hasher := md5.New()
	if _, err := io.Copy(hasher, object); err != nil {
		return "", errors.NewStorageErrorf("failed to hash object: %v", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// prefixInfo treats the key as a directory and aggregates the objects below
// it, combining per-object hashes over the sorted relative keys.
func (p *MinioProvider) prefixInfo(ctx context.Context, bucket, key, uri string) (*ArtifactInfo, error) {
	prefix := strings.TrimRight(key, "/") + "/"
	var totalSize int64
	found := false
	hasher := md5.New()
	for object := range p.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, errors.NewStorageErrorf("failed to list objects under %q: %v", uri, object.Err)
		}
		found = true
		totalSize += object.Size
		hasher.Write([]byte(strings.TrimPrefix(object.Key, prefix)))
		hasher.Write([]byte("\t"))
		hasher.Write([]byte(strings.ToLower(strings.Trim(object.ETag, `"`))))
		hasher.Write([]byte("\n"))
	}
	if !found {
		return nil, errors.NewItemNotFoundWithMessage("Object " + uri + " not found.")
	}
	return &ArtifactInfo{
		TotalSize: totalSize,
		IsDir:     true,
		Hashes:    map[string]string{HashAlgorithmMD5: hex.EncodeToString(hasher.Sum(nil))},
	}, nil
}

func (p *MinioProvider) SignURL(ctx context.Context, uri string, expire time.Duration) (string, error) {
	bucket, key, err := splitBucketURI(uri)
	if err != nil {
		return "", err
	}
	signed, err := p.client.PresignedGetObject(ctx, bucket, key, expire, url.Values{})
	if err != nil {
		return "", errors.NewStorageErrorf("failed to presign URL for %q: %v", uri, err)
	}
	return signed.String(), nil
}
