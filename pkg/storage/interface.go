/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package storage abstracts the blob stores holding artifact data and logs.
// Providers are addressed by URI; the orchestrator never interprets URIs
// beyond their scheme.
package storage

import (
	"context"
	"strings"
	"time"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
)

const (
	HashAlgorithmMD5 = "md5"
)

// ArtifactInfo is the metadata of one stored artifact.
type ArtifactInfo struct {
	TotalSize int64
	IsDir     bool
	// Hashes maps algorithm name to lowercase hex digest. Directory hashes
	// cover the sorted relative paths and per-file digests.
	Hashes map[string]string
}

// Hash returns the canonical "<algorithm>=<hex>" form of the preferred hash.
func (i *ArtifactInfo) Hash() string {
	if hex, ok := i.Hashes[HashAlgorithmMD5]; ok {
		return HashAlgorithmMD5 + "=" + hex
	}
	return ""
}

// Provider reads and writes blobs of one URI scheme.
type Provider interface {
	DownloadBytes(ctx context.Context, uri string) ([]byte, error)
	DownloadText(ctx context.Context, uri string) (string, error)
	UploadBytes(ctx context.Context, uri string, data []byte) error
	UploadText(ctx context.Context, uri string, text string) error
	GetInfo(ctx context.Context, uri string) (*ArtifactInfo, error)
}

// URLSigner is implemented by providers that can mint pre-signed GET URLs.
type URLSigner interface {
	SignURL(ctx context.Context, uri string, expire time.Duration) (string, error)
}

// Router dispatches on the URI scheme to a registered provider.
type Router struct {
	providers map[string]Provider
	fallback  Provider
}

func NewRouter() *Router {
	return &Router{providers: map[string]Provider{}}
}

// Register binds a provider to a scheme such as "s3" or "gs".
func (r *Router) Register(scheme string, provider Provider) *Router {
	r.providers[scheme] = provider
	return r
}

// RegisterFallback binds the provider used for URIs without a known scheme
// (plain filesystem paths).
func (r *Router) RegisterFallback(provider Provider) *Router {
	r.fallback = provider
	return r
}

func (r *Router) provider(uri string) (Provider, error) {
	if scheme, _, found := strings.Cut(uri, "://"); found {
		if provider, ok := r.providers[scheme]; ok {
			return provider, nil
		}
		if r.fallback != nil && scheme == "file" {
			return r.fallback, nil
		}
		return nil, errors.NewStorageErrorf("no storage provider registered for URI %q", uri)
	}
	if r.fallback == nil {
		return nil, errors.NewStorageErrorf("no storage provider registered for URI %q", uri)
	}
	return r.fallback, nil
}

func (r *Router) DownloadBytes(ctx context.Context, uri string) ([]byte, error) {
	provider, err := r.provider(uri)
	if err != nil {
		return nil, err
	}
	return provider.DownloadBytes(ctx, uri)
}

func (r *Router) DownloadText(ctx context.Context, uri string) (string, error) {
	provider, err := r.provider(uri)
	if err != nil {
		return "", err
	}
	return provider.DownloadText(ctx, uri)
}

func (r *Router) UploadBytes(ctx context.Context, uri string, data []byte) error {
	provider, err := r.provider(uri)
	if err != nil {
		return err
	}
	return provider.UploadBytes(ctx, uri, data)
}

func (r *Router) UploadText(ctx context.Context, uri string, text string) error {
	provider, err := r.provider(uri)
	if err != nil {
		return err
	}
	return provider.UploadText(ctx, uri, text)
}

func (r *Router) GetInfo(ctx context.Context, uri string) (*ArtifactInfo, error) {
	provider, err := r.provider(uri)
	if err != nil {
		return nil, err
	}
	return provider.GetInfo(ctx, uri)
}

// SignURL delegates to the provider when it supports signing.
func (r *Router) SignURL(ctx context.Context, uri string, expire time.Duration) (string, error) {
	provider, err := r.provider(uri)
	if err != nil {
		return "", err
	}
	signer, ok := provider.(URLSigner)
	if !ok {
		return "", errors.NewNotImplemented("Storage provider for this URI does not support signed URLs.")
	}
	return signer.SignURL(ctx, uri, expire)
}

var _ Provider = &Router{}
