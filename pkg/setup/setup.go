/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package setup assembles the shared process dependencies from the loaded
// configuration. Both binaries go through it so they agree on storage and
// launcher wiring.
package setup

import (
	"context"

	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/config"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/launcher"
	dockerlauncher "github.com/Cloud-Pipelines/pipelines-backend/pkg/launcher/docker"
	kuberneteslauncher "github.com/Cloud-Pipelines/pipelines-backend/pkg/launcher/kubernetes"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/storage"
)

// NewDatabaseClient opens the primary database connection and migrates the
// schema when auto-migration is enabled. The sqlx handle shares the same
// connection pool and serves the read-side projection queries.
func NewDatabaseClient() (*database.Client, *sqlx.DB, error) {
	gormDB, err := database.ConnectGorm(database.NewDBConfigFromConfig())
	if err != nil {
		return nil, nil, err
	}
	if config.IsDBAutoMigrate() {
		if err := database.AutoMigrate(gormDB); err != nil {
			return nil, nil, err
		}
	}
	sqlDB, err := database.WrapSqlx(gormDB)
	if err != nil {
		return nil, nil, err
	}
	client := database.NewClient(gormDB, database.WithPickLocking(config.IsAdvisoryLockEnable()))
	return client, sqlDB, nil
}

// NewStorageRouter wires the blob store providers declared in configuration.
// The local filesystem provider always serves as the fallback; s3 and gs are
// registered when their settings are present.
func NewStorageRouter(ctx context.Context) (*storage.Router, error) {
	router := storage.NewRouter().RegisterFallback(storage.NewLocalProvider())
	if endpoint := config.GetS3Endpoint(); endpoint != "" {
		minioProvider, err := storage.NewMinioProvider(&storage.MinioConfig{
			Endpoint:  endpoint,
			AccessKey: config.GetS3AccessKey(),
			SecretKey: config.GetS3SecretKey(),
			Region:    config.GetS3Region(),
			UseSSL:    config.IsS3UseSSL(),
		})
		if err != nil {
			return nil, err
		}
		router.Register("s3", minioProvider)
		klog.Infof("Registered s3 storage provider for endpoint %s", endpoint)
	}
	if credentialsFile := config.GetGCSCredentialsFile(); credentialsFile != "" {
		gcsProvider, err := storage.NewGCSProvider(ctx, credentialsFile)
		if err != nil {
			return nil, err
		}
		router.Register("gs", gcsProvider)
		klog.Info("Registered gs storage provider")
	}
	return router, nil
}

// NewLauncherRegistry registers the configured container runtimes. The
// registry always contains the configured default kind; the other runtime is
// added when reachable so stored handles of either kind stay resolvable.
func NewLauncherRegistry(provider storage.Provider) (launcher.Registry, error) {
	registry := launcher.Registry{}
	switch kind := config.GetLauncherKind(); kind {
	case kuberneteslauncher.Kind:
		clientset, err := kuberneteslauncher.NewClientset(config.GetKubeconfigPath())
		if err != nil {
			return nil, err
		}
		registry.Register(kuberneteslauncher.NewLauncher(
			clientset, config.GetKubernetesNamespace(), config.GetKubernetesServiceAccount(), provider))
		if dockerLauncher, err := dockerlauncher.NewLauncher(config.GetDockerHost(), provider); err == nil {
			registry.Register(dockerLauncher)
		}
	case dockerlauncher.Kind:
		dockerLauncher, err := dockerlauncher.NewLauncher(config.GetDockerHost(), provider)
		if err != nil {
			return nil, err
		}
		registry.Register(dockerLauncher)
	default:
		klog.Warningf("Unknown launcher kind %q in configuration", kind)
	}
	return registry, nil
}
