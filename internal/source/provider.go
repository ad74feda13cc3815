package source

import (
	"context"
	"strings"
)

// Resolved describes a video available on the local filesystem.
type Resolved struct {
	LocalPath   string
	Title       string
	Description string
}

// Provider turns a submitted source into a local video file.
type Provider interface {
	Fetch(ctx context.Context, source, destDir string) (Resolved, error)
}

// IsURL reports whether the source is a remote reference.
func IsURL(source string) bool {
	lower := strings.ToLower(strings.TrimSpace(source))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Resolver dispatches between the local and remote providers.
type Resolver struct {
	local  Provider
	remote Provider
}

// NewResolver builds a Resolver over the given providers.
func NewResolver(local, remote Provider) *Resolver {
	return &Resolver{local: local, remote: remote}
}

// Fetch resolves the source with the appropriate provider.
func (r *Resolver) Fetch(ctx context.Context, source, destDir string) (Resolved, error) {
	if IsURL(source) {
		return r.remote.Fetch(ctx, source, destDir)
	}
	return r.local.Fetch(ctx, source, destDir)
}
