/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package database

import (
	"context"

	"gorm.io/gorm"
)

// Client implements Interface on a GORM connection. The zero value is not
// usable; construct with NewClient.
type Client struct {
	db         *gorm.DB
	lockOnPick bool
}

type ClientOption func(*Client)

// WithPickLocking makes the queue pick queries lock the claimed row and skip
// rows locked by concurrent orchestrators.
func WithPickLocking(enable bool) ClientOption {
	return func(c *Client) {
		c.lockOnPick = enable
	}
}

func NewClient(db *gorm.DB, opts ...ClientOption) *Client {
	client := &Client{db: db}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) Transaction(ctx context.Context, fn func(tx Interface) error) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Client{db: tx, lockOnPick: c.lockOnPick})
	})
}

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

var _ Interface = &Client{}
