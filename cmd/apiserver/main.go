/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/config"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/log"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	if err := config.LoadConfig(*configPath); err != nil {
		klog.Fatalf("Failed to load config %s: %v", *configPath, err)
	}
	if err := log.Init("apiserver"); err != nil {
		klog.Fatalf("Failed to init logs: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := server.NewServer(ctx)
	if err != nil {
		klog.Fatalf("Failed to create apiserver: %v", err)
	}
	if err := s.Start(ctx); err != nil {
		klog.Fatalf("apiserver failed: %v", err)
	}
}
