package adapters

import (
	"fmt"
	"net/url"

	"github.com/de-tools/market-atlas/pkg/models/api"
	"github.com/de-tools/market-atlas/pkg/models/domain"
	"github.com/de-tools/market-atlas/pkg/models/store"
)

func MapDomainRunToStore(r *domain.Run) *store.Run {
	if r == nil {
		return nil
	}

	artifacts := make([]store.Artifact, 0, len(r.Artifacts))
	for _, a := range r.Artifacts {
		artifacts = append(artifacts, store.Artifact{
			RunID:    r.ID,
			Kind:     string(a.Kind),
			Dir:      a.Dir,
			Filename: a.Filename,
			Path:     a.Path,
			Bytes:    a.Bytes,
			SHA256:   a.SHA256,
		})
	}

	return &store.Run{
		ID:        r.ID,
		Symbol:    r.Symbol,
		Command:   string(r.Command),
		Timestamp: r.Timestamp,
		StartedAt: r.StartedAt,
		Artifacts: artifacts,
	}
}

func MapStoreRunToDomain(r *store.Run) *domain.Run {
	if r == nil {
		return nil
	}

	artifacts := make([]domain.OutputLocation, 0, len(r.Artifacts))
	for _, a := range r.Artifacts {
		artifacts = append(artifacts, domain.OutputLocation{
			Kind:     domain.ArtifactKind(a.Kind),
			Dir:      a.Dir,
			Filename: a.Filename,
			Path:     a.Path,
			Bytes:    a.Bytes,
			SHA256:   a.SHA256,
		})
	}

	return &domain.Run{
		ID:        r.ID,
		Symbol:    r.Symbol,
		Command:   domain.RunCommand(r.Command),
		Timestamp: r.Timestamp,
		StartedAt: r.StartedAt,
		Artifacts: artifacts,
	}
}

// MapDomainRunToAPI builds the API view of a run. Artifact URLs are relative to the API root.
func MapDomainRunToAPI(r *domain.Run) api.Run {
	artifacts := make([]api.Artifact, 0, len(r.Artifacts))
	for _, a := range r.Artifacts {
		artifacts = append(artifacts, api.Artifact{
			Kind:     string(a.Kind),
			Filename: a.Filename,
			Path:     a.Path,
			Bytes:    a.Bytes,
			SHA256:   a.SHA256,
			URL: fmt.Sprintf("/api/v1/runs/%s/artifacts/%s",
				url.PathEscape(r.ID), url.PathEscape(a.Filename)),
		})
	}

	return api.Run{
		ID:        r.ID,
		Symbol:    r.Symbol,
		Command:   string(r.Command),
		Timestamp: r.Timestamp,
		StartedAt: r.StartedAt,
		Artifacts: artifacts,
	}
}
