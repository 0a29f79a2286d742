/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

func SetValue(key string, value interface{}) {
	viper.Set(key, value)
}

func LoadConfig(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("pipelines")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	return viper.ReadInConfig()
}

func getString(key, defaultValue string) string {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetString(key)
}

func getBool(key string, defaultValue bool) bool {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetBool(key)
}

func getInt(key string, defaultValue int) int {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt(key)
}

func getStrings(key string) []string {
	val := viper.GetString(key)
	return removeBlank(strings.Split(val, ","))
}

func removeBlank(slice []string) []string {
	var result []string
	for _, val := range slice {
		if trim := strings.TrimSpace(val); trim != "" {
			result = append(result, trim)
		}
	}
	return result
}

func getFromFile(configPath, item string) string {
	path := getString(configPath, "")
	data, err := os.ReadFile(filepath.Join(path, item))
	if err != nil {
		return ""
	}
	key := string(data)
	return strings.TrimRight(key, "\r\n")
}

// getStringOrFile prefers the plain config key and falls back to a file
// mounted under the secret path.
func getStringOrFile(key, secretPath, item string) string {
	if val := getString(key, ""); len(val) > 0 {
		return val
	}
	return getFromFile(secretPath, item)
}

func GetServerPort() int {
	return getInt(serverPort, 8080)
}

func GetGinMode() string {
	return getString(serverGinMode, "release")
}

func IsReadOnly() bool {
	return getBool(serverReadOnly, false)
}

func GetUserHeaderName() string {
	return getString(userHeaderName, "X-Forwarded-User")
}

func GetUserGroupsHeaderName() string {
	return getString(userGroupsHeaderName, "X-Forwarded-Groups")
}

func GetUserAdminGroup() string {
	return getString(userAdminGroup, "admins")
}

func GetDBHost() string {
	return getStringOrFile(dbHost, dbSecretPath, "host")
}

func GetDBPort() int {
	if viper.IsSet(dbPort) {
		return viper.GetInt(dbPort)
	}
	return 5432
}

func GetDBName() string {
	return getStringOrFile(dbName, dbSecretPath, "dbname")
}

func GetDBUser() string {
	return getStringOrFile(dbUser, dbSecretPath, "user")
}

func GetDBPassword() string {
	return getStringOrFile(dbPassword, dbSecretPath, "password")
}

func GetDBSslMode() string {
	return getString(dbSslMode, "disable")
}

func GetDBMaxOpenConns() int {
	return getInt(dbMaxOpenConns, 100)
}

func GetDBMaxIdleConns() int {
	return getInt(dbMaxIdleConns, 10)
}

func GetDBMaxLifetimeSecond() int {
	return getInt(dbMaxLifetime, 600)
}

func GetDBMaxIdleTimeSecond() int {
	return getInt(dbMaxIdleTimeSecond, 60)
}

func GetDBConnectTimeoutSecond() int {
	return getInt(dbConnectTimeoutSecond, 10)
}

func IsDBAutoMigrate() bool {
	return getBool(dbAutoMigrate, true)
}

func GetSweepIntervalSecond() int {
	return getInt(orchestratorSweepInterval, 1)
}

func GetRetryMaxAttempts() int {
	return getInt(orchestratorRetryMaxAttempts, 5)
}

func GetRetryIntervalSecond() int {
	return getInt(orchestratorRetryInterval, 1)
}

func IsAdvisoryLockEnable() bool {
	return getBool(orchestratorAdvisoryLock, false)
}

func GetLauncherKind() string {
	return getString(launcherKind, "kubernetes")
}

func GetKubernetesNamespace() string {
	return getString(kubernetesNamespace, "default")
}

func GetKubernetesServiceAccount() string {
	return getString(kubernetesServiceAccount, "")
}

func GetKubeconfigPath() string {
	return getString(kubernetesKubeconfig, "")
}

func GetDockerHost() string {
	return getString(dockerHost, "")
}

func GetDataRoot() string {
	return getString(storageDataRoot, "")
}

func GetLogsRoot() string {
	if root := getString(storageLogsRoot, ""); len(root) > 0 {
		return root
	}
	return GetDataRoot()
}

func GetSignedURLExpireSecond() int {
	return getInt(storageSignedURLExpire, 900)
}

func GetS3Endpoint() string {
	return getString(s3Endpoint, "")
}

func GetS3Region() string {
	return getString(s3Region, "")
}

func IsS3UseSSL() bool {
	return getBool(s3UseSSL, true)
}

func GetS3AccessKey() string {
	return getStringOrFile(s3Prefix+s3AccessKey, s3SecretPath, s3AccessKey)
}

func GetS3SecretKey() string {
	return getStringOrFile(s3Prefix+s3SecretKey, s3SecretPath, s3SecretKey)
}

func GetGCSCredentialsFile() string {
	return getString(gcsCredentialsFile, "")
}

func GetLogDir() string {
	return getString(logDir, "")
}

func GetLogFileMaxSizeMB() int {
	return getInt(logFileMaxSizeMB, 100)
}

func IsLogAlsoToStderr() bool {
	return getBool(logAlsoToStderr, true)
}

func GetLogVerbosity() int {
	return getInt(logVerbosity, 0)
}
