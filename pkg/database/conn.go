/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/config"
)

type DBConfig struct {
	DBName         string
	Username       string
	Password       string
	Host           string
	SSLMode        string
	Port           int
	MaxIdleConns   int
	MaxOpenConns   int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
	ConnectTimeout int
}

func (c *DBConfig) SourceName() string {
	return fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%d sslmode=%s connect_timeout=%d",
		c.Username, c.Password, c.DBName, c.Host, c.Port, c.SSLMode, c.ConnectTimeout)
}

// NewDBConfigFromConfig assembles the connection settings from the process
// configuration.
func NewDBConfigFromConfig() *DBConfig {
	return &DBConfig{
		DBName:         config.GetDBName(),
		Username:       config.GetDBUser(),
		Password:       config.GetDBPassword(),
		Host:           config.GetDBHost(),
		Port:           config.GetDBPort(),
		SSLMode:        config.GetDBSslMode(),
		MaxOpenConns:   config.GetDBMaxOpenConns(),
		MaxIdleConns:   config.GetDBMaxIdleConns(),
		MaxIdleTime:    time.Duration(config.GetDBMaxIdleTimeSecond()) * time.Second,
		MaxLifetime:    time.Duration(config.GetDBMaxLifetimeSecond()) * time.Second,
		ConnectTimeout: config.GetDBConnectTimeoutSecond(),
	}
}

// ConnectGorm opens the primary GORM connection used for writes, transactions
// and migrations.
func ConnectGorm(cfg *DBConfig) (*gorm.DB, error) {
	dialector := postgres.Dialector{
		Config: &postgres.Config{
			DSN: cfg.SourceName(),
		},
	}
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxIdleTime(cfg.MaxIdleTime)
	sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)
	return gormDB, nil
}

// WrapSqlx exposes the GORM connection pool through sqlx for the read-side
// projection queries.
func WrapSqlx(gormDB *gorm.DB) (*sqlx.DB, error) {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	return sqlx.NewDb(sqlDB, "postgres"), nil
}
