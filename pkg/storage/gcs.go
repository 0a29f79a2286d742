/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"strings"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
)

// GCSProvider serves gs:// URIs through Google Cloud Storage.
type GCSProvider struct {
	client *gcstorage.Client
}

var (
	_ Provider  = &GCSProvider{}
	_ URLSigner = &GCSProvider{}
)

func NewGCSProvider(ctx context.Context, credentialsFile string) (*GCSProvider, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.NewStorageErrorf("failed to create GCS client: %v", err)
	}
	return &GCSProvider{client: client}, nil
}

func (p *GCSProvider) DownloadBytes(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := splitBucketURI(uri)
	if err != nil {
		return nil, err
	}
	reader, err := p.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if err == gcstorage.ErrObjectNotExist {
			return nil, errors.NewItemNotFoundWithMessage("Object " + uri + " not found.")
		}
		return nil, errors.NewStorageErrorf("failed to open object %q: %v", uri, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.NewStorageErrorf("failed to read object %q: %v", uri, err)
	}
	return data, nil
}

func (p *GCSProvider) DownloadText(ctx context.Context, uri string) (string, error) {
	data, err := p.DownloadBytes(ctx, uri)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (p *GCSProvider) UploadBytes(ctx context.Context, uri string, data []byte) error {
	bucket, key, err := splitBucketURI(uri)
	if err != nil {
		return err
	}
	writer := p.client.Bucket(bucket).Object(key).NewWriter(ctx)
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return errors.NewStorageErrorf("failed to write object %q: %v", uri, err)
	}
	if err := writer.Close(); err != nil {
		return errors.NewStorageErrorf("failed to finish upload of %q: %v", uri, err)
	}
	return nil
}

func (p *GCSProvider) UploadText(ctx context.Context, uri string, text string) error {
	return p.UploadBytes(ctx, uri, []byte(text))
}

func (p *GCSProvider) GetInfo(ctx context.Context, uri string) (*ArtifactInfo, error) {
	bucket, key, err := splitBucketURI(uri)
	if err != nil {
		return nil, err
	}
	attrs, err := p.client.Bucket(bucket).Object(key).Attrs(ctx)
	if err == nil {
		return &ArtifactInfo{
			TotalSize: attrs.Size,
			IsDir:     false,
			Hashes:    map[string]string{HashAlgorithmMD5: hex.EncodeToString(attrs.MD5)},
		}, nil
	}
	if err != gcstorage.ErrObjectNotExist {
		return nil, errors.NewStorageErrorf("failed to stat object %q: %v", uri, err)
	}
	return p.prefixInfo(ctx, bucket, key, uri)
}

func (p *GCSProvider) prefixInfo(ctx context.Context, bucket, key, uri string) (*ArtifactInfo, error) {
	prefix := strings.TrimRight(key, "/") + "/"
	objects := p.client.Bucket(bucket).Objects(ctx, &gcstorage.Query{Prefix: prefix})
	var totalSize int64
	found := false
	hasher := md5.New()
	for {
		attrs, err := objects.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.NewStorageErrorf("failed to list objects under %q: %v", uri, err)
		}
		found = true
		totalSize += attrs.Size
		hasher.Write([]byte(strings.TrimPrefix(attrs.Name, prefix)))
		hasher.Write([]byte("\t"))
		hasher.Write([]byte(hex.EncodeToString(attrs.MD5)))
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

func (p *GCSProvider) SignURL(ctx context.Context, uri string, expire time.Duration) (string, error) {
	bucket, key, err := splitBucketURI(uri)
	if err != nil {
		return "", err
	}
	signed, err := p.client.Bucket(bucket).SignedURL(key, &gcstorage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(expire),
		Scheme:  gcstorage.SigningSchemeV4,
	})
	if err != nil {
		return "", errors.NewStorageErrorf("failed to sign URL for %q: %v", uri, err)
	}
	return signed, nil
}
