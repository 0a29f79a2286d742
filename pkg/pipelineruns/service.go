/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package pipelineruns implements the write side of the run API: submission,
// lookup, listing and termination.
package pipelineruns

import (
	"context"
	"encoding/base64"
	"strconv"
	"time"

	"k8s.io/klog/v2"

	v1 "github.com/Cloud-Pipelines/pipelines-backend/pkg/apis/pipelines/v1"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/compiler"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/model"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/launcher"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/metrics"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/orchestrator"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Service struct {
	db        database.Interface
	launchers launcher.Registry
}

func NewService(db database.Interface, launchers launcher.Registry) *Service {
	return &Service{db: db, launchers: launchers}
}

// Create compiles the root task into its execution graph and records the run.
// Compilation and the run row commit in one transaction; a rejected pipeline
// leaves no rows behind.
func (s *Service) Create(ctx context.Context, rootTask *v1.TaskSpec, createdBy string, annotations map[string]interface{}) (*model.PipelineRun, error) {
	var run *model.PipelineRun
	err := s.db.Transaction(ctx, func(tx database.Interface) error {
		rootNode, err := compiler.Compile(ctx, tx, rootTask)
		if err != nil {
			return err
		}
		run = &model.PipelineRun{
			RootExecutionId: rootNode.Id,
			Annotations:     annotations,
			CreatedBy:       createdBy,
			CreatedAt:       time.Now(),
		}
		run.UpdatedAt = run.CreatedAt
		return tx.CreatePipelineRun(ctx, run)
	})
	if err != nil {
		return nil, err
	}
	metrics.PipelineRunsTotal.Inc()
	klog.V(2).Infof("Pipeline run %d submitted by %q with root execution %d",
		run.Id, createdBy, run.RootExecutionId)
	return run, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.PipelineRun, error) {
	run, err := s.db.GetPipelineRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, errors.NewItemNotFound(errors.PipelineRunKind, strconv.FormatInt(id, 10))
	}
	return run, nil
}

// List returns one page of runs, newest first, and the token of the next
// page. An empty token means the listing is exhausted.
func (s *Service) List(ctx context.Context, pageToken string, pageSize int) ([]*model.PipelineRun, string, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	offset, err := decodePageToken(pageToken)
	if err != nil {
		return nil, "", err
	}
	runs, err := s.db.ListPipelineRuns(ctx, offset, pageSize)
	if err != nil {
		return nil, "", err
	}
	nextToken := ""
	if len(runs) == pageSize {
		nextToken = encodePageToken(offset + pageSize)
	}
	return runs, nextToken, nil
}

// Terminate cancels every unfinished execution of the run.
func (s *Service) Terminate(ctx context.Context, id int64, byUser string) error {
	return orchestrator.CancelPipelineRun(ctx, s.db, s.launchers, id, byUser)
}

func encodePageToken(offset int) string {
	return base64.URLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodePageToken(token string) (int, error) {
	if token == "" {
		return 0, nil
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return 0, errors.NewValidationError("Invalid page token.")
	}
	offset, err := strconv.Atoi(string(raw))
	if err != nil || offset < 0 {
		return 0, errors.NewValidationError("Invalid page token.")
	}
	return offset, nil
}
