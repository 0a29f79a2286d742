/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package server assembles and runs the pipelines API server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/config"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/handlers"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/pipelineruns"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/queryservice"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/setup"
)

type Server struct {
	httpServer *http.Server
}

// NewServer wires the API server from the loaded configuration: database,
// blob stores, launcher registry, services and HTTP routes.
func NewServer(ctx context.Context) (*Server, error) {
	gin.SetMode(config.GetGinMode())
	if config.GetServerPort() <= 0 {
		return nil, fmt.Errorf("the apiserver port is not defined")
	}

	dbClient, sqlDB, err := setup.NewDatabaseClient()
	if err != nil {
		return nil, err
	}
	router, err := setup.NewStorageRouter(ctx)
	if err != nil {
		return nil, err
	}
	registry, err := setup.NewLauncherRegistry(router)
	if err != nil {
		return nil, err
	}

	runService := pipelineruns.NewService(dbClient, registry)
	queryService := queryservice.NewService(
		sqlDB, dbClient, router, registry,
		time.Duration(config.GetSignedURLExpireSecond())*time.Second)
	readOnly := handlers.NewReadOnlyState(config.IsReadOnly())
	handler := handlers.NewHandler(dbClient, runService, queryService, readOnly)

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", config.GetServerPort()),
			Handler: handlers.InitRouters(handler),
		},
	}, nil
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		klog.Infof("apiserver listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	klog.Info("shutting down http server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		klog.ErrorS(err, "failed to shutdown http server")
		return err
	}
	klog.Info("apiserver is stopped")
	klog.Flush()
	return nil
}
