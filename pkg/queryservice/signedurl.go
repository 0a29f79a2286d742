/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package queryservice

import (
	"context"

	pkgerrors "github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
)

// GetArtifactSignedURL mints a pre-signed GET URL for the artifact's blob.
// URLs are cached per URI for half their lifetime; artifact data is
// immutable, so a cached URL is always for the right content.
func (s *Service) GetArtifactSignedURL(ctx context.Context, artifactId int64) (string, error) {
	artifact, err := s.GetArtifact(ctx, artifactId)
	if err != nil {
		return "", err
	}
	if artifact.Uri == nil {
		return "", pkgerrors.NewItemNotFoundWithMessage("Artifact has no stored data to sign.")
	}
	if cached, ok := s.signedURLs.Get(*artifact.Uri); ok {
		return cached.(string), nil
	}
	signedURL, err := s.provider.SignURL(ctx, *artifact.Uri, s.signedURLExpire)
	if err != nil {
		return "", err
	}
	s.signedURLs.SetDefault(*artifact.Uri, signedURL)
	return signedURL, nil
}
