/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package queryservice implements the read side of the API: execution and
// artifact projections served by plain SQL, container logs and signed
// download URLs.
package queryservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	gocache "github.com/patrickmn/go-cache"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/model"
	pkgerrors "github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/launcher"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/storage"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Service answers the read-only API queries. Projections go through sqlx on
// the shared connection pool; log and URL operations reach out to the
// launchers and blob stores.
type Service struct {
	sqlDB     *sqlx.DB
	store     database.Interface
	provider  *storage.Router
	launchers launcher.Registry

	signedURLs      *gocache.Cache
	signedURLExpire time.Duration
}

func NewService(sqlDB *sqlx.DB, store database.Interface, provider *storage.Router, launchers launcher.Registry, signedURLExpire time.Duration) *Service {
	if signedURLExpire <= 0 {
		signedURLExpire = 15 * time.Minute
	}
	return &Service{
		sqlDB:     sqlDB,
		store:     store,
		provider:  provider,
		launchers: launchers,
		// Cached URLs are dropped at half their signed lifetime so callers
		// never receive one about to expire.
		signedURLs:      gocache.New(signedURLExpire/2, time.Minute),
		signedURLExpire: signedURLExpire,
	}
}

// ExecutionInfo is the per-execution projection served to clients.
type ExecutionInfo struct {
	Id                      int64                     `json:"id"`
	TaskSpec                json.RawMessage           `json:"task_spec"`
	ParentExecutionId       *int64                    `json:"parent_execution_id,omitempty"`
	TaskIdInParentExecution *string                   `json:"task_id_in_parent_execution,omitempty"`
	Status                  *model.ContainerExecutionStatus `json:"container_execution_status,omitempty"`
	ContainerExecutionId    *int64                    `json:"container_execution_id,omitempty"`
	CacheKey                *string                   `json:"container_execution_cache_key,omitempty"`
	ChildExecutionIds       map[string]int64          `json:"child_task_execution_ids,omitempty"`
	InputArtifactIds        map[string]int64          `json:"input_artifact_ids,omitempty"`
	OutputArtifactIds       map[string]int64          `json:"output_artifact_ids,omitempty"`
}

func executionNodeQuery(executionId int64) sq.SelectBuilder {
	return psql.Select(
		"id", "task_spec", "parent_execution_id", "task_id_in_parent_execution",
		"container_execution_status", "container_execution_cache_key", "container_execution_id").
		From(model.TableNameExecutionNode).
		Where(sq.Eq{"id": executionId})
}

func childExecutionsQuery(executionId int64) sq.SelectBuilder {
	return psql.Select("id", "task_id_in_parent_execution").
		From(model.TableNameExecutionNode).
		Where(sq.Eq{"parent_execution_id": executionId}).
		OrderBy("id ASC")
}

func inputArtifactIdsQuery(executionId int64) sq.SelectBuilder {
	return psql.Select("input_name", "artifact_node_id").
		From(model.TableNameInputArtifactLink).
		Where(sq.Eq{"execution_id": executionId}).
		OrderBy("input_name ASC")
}

func outputArtifactIdsQuery(executionId int64) sq.SelectBuilder {
	return psql.Select("output_name", "artifact_node_id").
		From(model.TableNameOutputArtifactLink).
		Where(sq.Eq{"execution_id": executionId}).
		OrderBy("output_name ASC")
}

// GetExecutionInfo assembles the full projection of one execution node.
func (s *Service) GetExecutionInfo(ctx context.Context, executionId int64) (*ExecutionInfo, error) {
	query, args, err := executionNodeQuery(executionId).ToSql()
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("GetExecutionInfo", err)
	}
	var node model.ExecutionNode
	if err := s.sqlDB.GetContext(ctx, &node, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pkgerrors.NewItemNotFound(pkgerrors.ExecutionKind, strconv.FormatInt(executionId, 10))
		}
		return nil, pkgerrors.NewDatabaseError("GetExecutionInfo", err)
	}
	info := &ExecutionInfo{
		Id:                      node.Id,
		TaskSpec:                node.TaskSpec,
		ParentExecutionId:       node.ParentExecutionId,
		TaskIdInParentExecution: node.TaskIdInParentExecution,
		Status:                  node.ContainerExecutionStatus,
		ContainerExecutionId:    node.ContainerExecutionId,
		CacheKey:                node.ContainerExecutionCacheKey,
	}

	query, args, err = childExecutionsQuery(executionId).ToSql()
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("GetExecutionInfo", err)
	}
	var children []struct {
		Id     int64   `db:"id"`
		TaskId *string `db:"task_id_in_parent_execution"`
	}
	if err := s.sqlDB.SelectContext(ctx, &children, query, args...); err != nil {
		return nil, pkgerrors.NewDatabaseError("GetExecutionInfo", err)
	}
	if len(children) > 0 {
		info.ChildExecutionIds = map[string]int64{}
		for _, child := range children {
			if child.TaskId != nil {
				info.ChildExecutionIds[*child.TaskId] = child.Id
			}
		}
	}

	info.InputArtifactIds, err = s.namedArtifactIds(ctx, inputArtifactIdsQuery(executionId), "input_name")
	if err != nil {
		return nil, err
	}
	info.OutputArtifactIds, err = s.namedArtifactIds(ctx, outputArtifactIdsQuery(executionId), "output_name")
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (s *Service) namedArtifactIds(ctx context.Context, builder sq.SelectBuilder, nameColumn string) (map[string]int64, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("namedArtifactIds", err)
	}
	rows, err := s.sqlDB.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("namedArtifactIds", err)
	}
	defer rows.Close()
	var result map[string]int64
	for rows.Next() {
		var name string
		var artifactNodeId int64
		if err := rows.Scan(&name, &artifactNodeId); err != nil {
			return nil, pkgerrors.NewDatabaseError("namedArtifactIds", err)
		}
		if result == nil {
			result = map[string]int64{}
		}
		result[name] = artifactNodeId
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewDatabaseError("namedArtifactIds", err)
	}
	return result, nil
}

// ArtifactInfo is the artifact projection: the node plus its inline data when
// materialized.
type ArtifactInfo struct {
	Id                  int64   `json:"id" db:"id"`
	TypeName            *string `json:"type_name,omitempty" db:"type_name"`
	ProducerExecutionId *int64  `json:"producer_execution_id,omitempty" db:"producer_execution_id"`
	ProducerOutputName  *string `json:"producer_output_name,omitempty" db:"producer_output_name"`
	HadDataInPast       bool    `json:"had_data_in_past" db:"had_data_in_past"`
	ArtifactDataId      *int64  `json:"artifact_data_id,omitempty" db:"artifact_data_id"`
	TotalSize           *int64  `json:"total_size,omitempty" db:"total_size"`
	IsDir               *bool   `json:"is_dir,omitempty" db:"is_dir"`
	Hash                *string `json:"hash,omitempty" db:"hash"`
	Uri                 *string `json:"uri,omitempty" db:"uri"`
	Value               *string `json:"value,omitempty" db:"value"`
}

func artifactsQuery(artifactIds []int64) sq.SelectBuilder {
	return psql.Select(
		"an.id", "an.type_name", "an.producer_execution_id", "an.producer_output_name",
		"an.had_data_in_past", "an.artifact_data_id",
		"ad.total_size", "ad.is_dir", "ad.hash", "ad.uri", "ad.value").
		From(model.TableNameArtifactNode + " an").
		LeftJoin(model.TableNameArtifactData + " ad ON ad.id = an.artifact_data_id").
		Where(sq.Eq{"an.id": artifactIds}).
		OrderBy("an.id ASC")
}

// GetArtifacts resolves artifact nodes by id, joining in the materialized
// data. Unknown ids are simply absent from the result.
func (s *Service) GetArtifacts(ctx context.Context, artifactIds []int64) ([]*ArtifactInfo, error) {
	if len(artifactIds) == 0 {
		return nil, nil
	}
	query, args, err := artifactsQuery(artifactIds).ToSql()
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("GetArtifacts", err)
	}
	var artifacts []*ArtifactInfo
	if err := s.sqlDB.SelectContext(ctx, &artifacts, query, args...); err != nil {
		return nil, pkgerrors.NewDatabaseError("GetArtifacts", err)
	}
	return artifacts, nil
}

// GetArtifact resolves one artifact node by id.
func (s *Service) GetArtifact(ctx context.Context, artifactId int64) (*ArtifactInfo, error) {
	artifacts, err := s.GetArtifacts(ctx, []int64{artifactId})
	if err != nil {
		return nil, err
	}
	if len(artifacts) == 0 {
		return nil, pkgerrors.NewItemNotFound(pkgerrors.ArtifactKind, strconv.FormatInt(artifactId, 10))
	}
	return artifacts[0], nil
}

// GraphExecutionState summarizes the progress of a graph execution: the state
// of its direct children plus status counts over the whole subtree.
type GraphExecutionState struct {
	ExecutionId            int64                               `json:"execution_id"`
	ChildExecutionStatuses map[string]ChildExecutionState      `json:"child_execution_statuses,omitempty"`
	DescendantStatusCounts map[model.ContainerExecutionStatus]int64 `json:"descendant_status_counts,omitempty"`
}

type ChildExecutionState struct {
	ExecutionId int64                            `json:"execution_id"`
	Status      *model.ContainerExecutionStatus  `json:"container_execution_status,omitempty"`
}

func childStatusesQuery(executionId int64) sq.SelectBuilder {
	return psql.Select("id", "task_id_in_parent_execution", "container_execution_status").
		From(model.TableNameExecutionNode).
		Where(sq.Eq{"parent_execution_id": executionId}).
		OrderBy("id ASC")
}

func descendantStatusCountsQuery(executionId int64) sq.SelectBuilder {
	return psql.Select("en.container_execution_status AS status", "COUNT(*) AS count").
		From(model.TableNameExecutionToAncestorExecutionLink + " cl").
		Join(model.TableNameExecutionNode + " en ON en.id = cl.execution_id").
		Where(sq.Eq{"cl.ancestor_execution_id": executionId}).
		Where("en.container_execution_status IS NOT NULL").
		GroupBy("en.container_execution_status")
}

// GetGraphExecutionState reports the run-level progress view. It is the query
// frontends poll, so it stays at two grouped selects over the closure table.
func (s *Service) GetGraphExecutionState(ctx context.Context, executionId int64) (*GraphExecutionState, error) {
	state := &GraphExecutionState{ExecutionId: executionId}

	query, args, err := childStatusesQuery(executionId).ToSql()
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("GetGraphExecutionState", err)
	}
	var children []struct {
		Id     int64                            `db:"id"`
		TaskId *string                          `db:"task_id_in_parent_execution"`
		Status *model.ContainerExecutionStatus  `db:"container_execution_status"`
	}
	if err := s.sqlDB.SelectContext(ctx, &children, query, args...); err != nil {
		return nil, pkgerrors.NewDatabaseError("GetGraphExecutionState", err)
	}
	if len(children) > 0 {
		state.ChildExecutionStatuses = map[string]ChildExecutionState{}
		for _, child := range children {
			if child.TaskId == nil {
				continue
			}
			state.ChildExecutionStatuses[*child.TaskId] = ChildExecutionState{
				ExecutionId: child.Id,
				Status:      child.Status,
			}
		}
	}

	query, args, err = descendantStatusCountsQuery(executionId).ToSql()
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("GetGraphExecutionState", err)
	}
	var counts []struct {
		Status model.ContainerExecutionStatus `db:"status"`
		Count  int64                          `db:"count"`
	}
	if err := s.sqlDB.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, pkgerrors.NewDatabaseError("GetGraphExecutionState", err)
	}
	if len(counts) > 0 {
		state.DescendantStatusCounts = map[model.ContainerExecutionStatus]int64{}
		for _, row := range counts {
			state.DescendantStatusCounts[row.Status] = row.Count
		}
	}
	return state, nil
}
