/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
)

// LocalProvider stores blobs on the local filesystem. It serves plain paths
// and file:// URIs and exists mainly for development and tests.
type LocalProvider struct{}

var _ Provider = &LocalProvider{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func localPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

func (p *LocalProvider) DownloadBytes(ctx context.Context, uri string) ([]byte, error) {
	data, err := os.ReadFile(localPath(uri))
	if err != nil {
		return nil, errors.NewStorageErrorf("failed to read %q: %v", uri, err)
	}
	return data, nil
}

func (p *LocalProvider) DownloadText(ctx context.Context, uri string) (string, error) {
	data, err := p.DownloadBytes(ctx, uri)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (p *LocalProvider) UploadBytes(ctx context.Context, uri string, data []byte) error {
	path := localPath(uri)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewStorageErrorf("failed to create directory for %q: %v", uri, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewStorageErrorf("failed to write %q: %v", uri, err)
	}
	return nil
}

func (p *LocalProvider) UploadText(ctx context.Context, uri string, text string) error {
	return p.UploadBytes(ctx, uri, []byte(text))
}

func (p *LocalProvider) GetInfo(ctx context.Context, uri string) (*ArtifactInfo, error) {
	path := localPath(uri)
	stat, err := os.Stat(path)
	if err != nil {
		return nil, errors.NewStorageErrorf("failed to stat %q: %v", uri, err)
	}
	if !stat.IsDir() {
		hash, err := fileMD5(path)
		if err != nil {
			return nil, err
		}
		return &ArtifactInfo{
			TotalSize: stat.Size(),
			IsDir:     false,
			Hashes:    map[string]string{HashAlgorithmMD5: hash},
		}, nil
	}
	return dirInfo(path)
}

func fileMD5(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", errors.NewStorageErrorf("failed to open %q: %v", path, err)
	}
	defer file.Close()
	hasher := md5.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", errors.NewStorageErrorf("failed to hash %q: %v", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// dirInfo sums the file sizes and combines per-file digests over the sorted
// relative paths so the directory hash is deterministic.
func dirInfo(root string) (*ArtifactInfo, error) {
	type fileEntry struct {
		relPath string
		size    int64
		hash    string
	}
	var entries []fileEntry
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		hash, err := fileMD5(path)
		if err != nil {
			return err
		}
		entries = append(entries, fileEntry{relPath: filepath.ToSlash(relPath), size: info.Size(), hash: hash})
		return nil
	})
	if err != nil {
		if errors.IsStorage(err) {
			return nil, err
		}
		return nil, errors.NewStorageErrorf("failed to walk %q: %v", root, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].relPath < entries[j].relPath })
	var totalSize int64
	hasher := md5.New()
	for _, entry := range entries {
		totalSize += entry.size
		fmt.Fprintf(hasher, "%s\t%s\n", entry.relPath, entry.hash)
	}
	return &ArtifactInfo{
		TotalSize: totalSize,
		IsDir:     true,
		Hashes:    map[string]string{HashAlgorithmMD5: hex.EncodeToString(hasher.Sum(nil))},
	}, nil
}
