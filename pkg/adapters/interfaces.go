package adapters

import (
	"context"

	"graylogoperator/pkg/core"
)

// Leadership reports whether this replica currently holds leadership.
type Leadership interface {
	IsLeader() bool
}

// ConfigSource exposes the unit's configuration options.
type ConfigSource interface {
	// AdminPassword returns the plaintext admin password, or "" when not configured.
	AdminPassword(ctx context.Context) (string, error)
	// Port returns the configured service port.
	Port() int32
}

// RelationSource reads the raw data published by the remote side of a relation.
// present=false means the relation does not exist.
type RelationSource interface {
	RelationData(ctx context.Context, kind core.DependencyKind) (fields map[string]string, present bool, err error)
}

// ImageSource fetches the workload image resource.
type ImageSource interface {
	FetchImage(ctx context.Context) (core.ImageDetails, error)
}

// IngressResolver resolves the address clients use to reach the workload.
// It returns core.ErrIngressUnavailable while no address is assigned.
type IngressResolver interface {
	IngressAddress(ctx context.Context) (string, error)
}

// RuntimeProbe reports whether the execution environment has signaled readiness.
type RuntimeProbe interface {
	RuntimeReady(ctx context.Context) (bool, error)
}

// PublishResult describes what a publish did.
type PublishResult struct {
	Changed bool
}

// Publisher applies a configuration artifact to the running workload.
type Publisher interface {
	Publish(ctx context.Context, artifact core.ConfigurationArtifact, hash string) (PublishResult, error)
}
