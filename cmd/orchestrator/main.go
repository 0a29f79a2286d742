/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/config"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/log"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/orchestrator"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/setup"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	metricsPort := flag.Int("metrics-port", 9090, "port serving /metrics and /healthz")
	flag.Parse()

	if err := config.LoadConfig(*configPath); err != nil {
		klog.Fatalf("Failed to load config %s: %v", *configPath, err)
	}
	if err := log.Init("orchestrator"); err != nil {
		klog.Fatalf("Failed to init logs: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, _, err := setup.NewDatabaseClient()
	if err != nil {
		klog.Fatalf("Failed to connect to database: %v", err)
	}
	router, err := setup.NewStorageRouter(ctx)
	if err != nil {
		klog.Fatalf("Failed to set up storage: %v", err)
	}
	registry, err := setup.NewLauncherRegistry(router)
	if err != nil {
		klog.Fatalf("Failed to set up launchers: %v", err)
	}

	o := orchestrator.New(dbClient, registry, router, orchestrator.Options{
		DataRoot:            config.GetDataRoot(),
		LogsRoot:            config.GetLogsRoot(),
		DefaultLauncherKind: config.GetLauncherKind(),
		CacheEnabled:        true,
		SweepInterval:       time.Duration(config.GetSweepIntervalSecond()) * time.Second,
		RetryAttempts:       config.GetRetryMaxAttempts(),
		RetryInterval:       time.Duration(config.GetRetryIntervalSecond()) * time.Second,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{Addr: fmt.Sprintf(":%d", *metricsPort), Handler: mux}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		klog.Info("orchestrator started")
		o.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	if err := group.Wait(); err != nil {
		klog.Fatalf("orchestrator failed: %v", err)
	}
	klog.Info("orchestrator is stopped")
	klog.Flush()
}
