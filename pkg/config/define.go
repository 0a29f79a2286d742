/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package config

const (
	// server
	serverPrefix   = "server."
	serverPort     = serverPrefix + "port"
	serverGinMode  = serverPrefix + "gin_mode"
	serverReadOnly = serverPrefix + "read_only"

	// user identity propagated by the auth proxy
	userPrefix           = "user."
	userHeaderName       = userPrefix + "header_name"
	userGroupsHeaderName = userPrefix + "groups_header_name"
	userAdminGroup       = userPrefix + "admin_group"

	// db
	dbPrefix               = "db."
	dbSecretPath           = dbPrefix + "secret_path"
	dbHost                 = dbPrefix + "host"
	dbPort                 = dbPrefix + "port"
	dbName                 = dbPrefix + "dbname"
	dbUser                 = dbPrefix + "user"
	dbPassword             = dbPrefix + "password"
	dbSslMode              = dbPrefix + "ssl_mode"
	dbMaxOpenConns         = dbPrefix + "max_open_conns"
	dbMaxIdleConns         = dbPrefix + "max_idle_conns"
	dbMaxLifetime          = dbPrefix + "max_life_time_second"
	dbMaxIdleTimeSecond    = dbPrefix + "max_idle_time_second"
	dbConnectTimeoutSecond = dbPrefix + "connect_timeout_second"
	dbAutoMigrate          = dbPrefix + "auto_migrate"

	// orchestrator
	orchestratorPrefix           = "orchestrator."
	orchestratorSweepInterval    = orchestratorPrefix + "sweep_interval_second"
	orchestratorRetryMaxAttempts = orchestratorPrefix + "retry_max_attempts"
	orchestratorRetryInterval    = orchestratorPrefix + "retry_interval_second"
	orchestratorAdvisoryLock     = orchestratorPrefix + "advisory_lock"

	// launcher
	launcherPrefix           = "launcher."
	launcherKind             = launcherPrefix + "kind"
	kubernetesPrefix         = launcherPrefix + "kubernetes."
	kubernetesNamespace      = kubernetesPrefix + "namespace"
	kubernetesServiceAccount = kubernetesPrefix + "service_account"
	kubernetesKubeconfig     = kubernetesPrefix + "kubeconfig"
	dockerPrefix             = launcherPrefix + "docker."
	dockerHost               = dockerPrefix + "host"

	// storage
	storagePrefix          = "storage."
	storageDataRoot        = storagePrefix + "data_root"
	storageLogsRoot        = storagePrefix + "logs_root"
	storageSignedURLExpire = storagePrefix + "signed_url_expire_second"

	// s3
	s3Prefix     = "s3."
	s3Endpoint   = s3Prefix + "endpoint"
	s3Region     = s3Prefix + "region"
	s3UseSSL     = s3Prefix + "use_ssl"
	s3SecretPath = s3Prefix + "secret_path"
	s3AccessKey  = "access_key"
	s3SecretKey  = "secret_key"

	// gcs
	gcsPrefix          = "gcs."
	gcsCredentialsFile = gcsPrefix + "credentials_file"

	// log
	logPrefix        = "log."
	logDir           = logPrefix + "dir"
	logFileMaxSizeMB = logPrefix + "file_max_size_mb"
	logAlsoToStderr  = logPrefix + "also_to_stderr"
	logVerbosity     = logPrefix + "verbosity"
)
