// Package registry tracks the connection descriptors received over each
// dependency relation. It validates relation data at the boundary so that a
// descriptor is either complete or empty, never partially populated.
package registry

import (
	"fmt"
	"strconv"

	"github.com/go-logr/logr"

	"graylogoperator/pkg/core"
)

// Leadership reports whether the caller may mutate shared state.
type Leadership interface {
	IsLeader() bool
}

// Snapshot is an immutable copy of every descriptor at one point in time.
type Snapshot map[core.DependencyKind]core.DependencyDescriptor

// Satisfied reports whether the snapshot holds an endpoint for kind.
func (snapshot Snapshot) Satisfied(kind core.DependencyKind) bool {
	return snapshot[kind].Satisfied()
}

// Endpoint returns the endpoint recorded for kind.
func (snapshot Snapshot) Endpoint(kind core.DependencyKind) string {
	return snapshot[kind].Endpoint
}

// Missing returns the kinds from required that have no endpoint, in the order given.
func (snapshot Snapshot) Missing(required []core.DependencyKind) []core.DependencyKind {
	var missing []core.DependencyKind
	for _, kind := range required {
		if !snapshot.Satisfied(kind) {
			missing = append(missing, kind)
		}
	}
	return missing
}

// Registry owns the dependency descriptors of one unit.
// The descriptor map belongs to the caller's persisted state and is mutated in place.
type Registry struct {
	descriptors map[core.DependencyKind]core.DependencyDescriptor
	leadership  Leadership
	log         logr.Logger
}

// New wraps descriptors, allocating an entry for every known dependency kind.
func New(descriptors map[core.DependencyKind]core.DependencyDescriptor, leadership Leadership, log logr.Logger) *Registry {
	if descriptors == nil {
		descriptors = map[core.DependencyKind]core.DependencyDescriptor{}
	}
	for _, kind := range core.AllDependencies {
		descriptor := descriptors[kind]
		descriptor.Kind = kind
		descriptors[kind] = descriptor
	}
	return &Registry{descriptors: descriptors, leadership: leadership, log: log.WithName("registry")}
}

// Update validates relation fields for kind and stores the composed endpoint.
// Partial data is rejected with an *core.IncompleteDataError and leaves the
// descriptor untouched. Followers get core.ErrNotLeader.
func (registry *Registry) Update(kind core.DependencyKind, fields map[string]string) error {
	if !registry.isLeader() {
		registry.log.V(1).Info("ignoring relation update on follower", "kind", kind)
		return core.ErrNotLeader
	}

	endpoint, err := compose(kind, fields)
	if err != nil {
		registry.log.Info("rejecting relation data", "severity", "warning", "kind", kind, "reason", err.Error())
		return err
	}

	registry.store(kind, endpoint)
	return nil
}

// Clear resets the descriptor for kind, as when the relation is torn down.
func (registry *Registry) Clear(kind core.DependencyKind) error {
	if !registry.isLeader() {
		registry.log.V(1).Info("ignoring relation teardown on follower", "kind", kind)
		return core.ErrNotLeader
	}
	if _, known := registry.descriptors[kind]; !known {
		return fmt.Errorf("unknown dependency kind %q", kind)
	}

	registry.log.Info("removing endpoint from stored state", "severity", "warning", "kind", kind)
	registry.store(kind, "")
	return nil
}

// IsSatisfied reports whether kind currently has an endpoint.
func (registry *Registry) IsSatisfied(kind core.DependencyKind) bool {
	return registry.descriptors[kind].Satisfied()
}

// Descriptor returns the current descriptor for kind.
func (registry *Registry) Descriptor(kind core.DependencyKind) core.DependencyDescriptor {
	return registry.descriptors[kind]
}

// Snapshot copies the current descriptors.
func (registry *Registry) Snapshot() Snapshot {
	snapshot := make(Snapshot, len(registry.descriptors))
	for kind, descriptor := range registry.descriptors {
		snapshot[kind] = descriptor
	}
	return snapshot
}

// Statuses summarizes every known dependency in a stable order.
func (registry *Registry) Statuses() []core.DependencyStatus {
	statuses := make([]core.DependencyStatus, 0, len(core.AllDependencies))
	for _, kind := range core.AllDependencies {
		descriptor := registry.descriptors[kind]
		statuses = append(statuses, core.DependencyStatus{Kind: kind, Satisfied: descriptor.Satisfied(), Version: descriptor.Version})
	}
	return statuses
}

func (registry *Registry) store(kind core.DependencyKind, endpoint string) {
	descriptor := registry.descriptors[kind]
	if descriptor.Endpoint == endpoint {
		return
	}
	descriptor.Kind = kind
	descriptor.Endpoint = endpoint
	descriptor.Version++
	registry.descriptors[kind] = descriptor
}

func (registry *Registry) isLeader() bool {
	return registry.leadership != nil && registry.leadership.IsLeader()
}

// compose builds the canonical endpoint for kind from complete relation data.
func compose(kind core.DependencyKind, fields map[string]string) (string, error) {
	switch kind {
	case core.DependencySearchIndex, core.DependencyPeers:
		if err := requireFields(kind, fields, core.FieldIngressAddress, core.FieldPort); err != nil {
			return "", err
		}
		port, err := strconv.Atoi(fields[core.FieldPort])
		if err != nil || port < 1 || port > 65535 {
			return "", &core.IncompleteDataError{Kind: kind, Invalid: []string{core.FieldPort}}
		}
		return fmt.Sprintf("http://%s:%d", fields[core.FieldIngressAddress], port), nil
	case core.DependencyDatastore:
		if err := requireFields(kind, fields, core.FieldReplicaSetURI, core.FieldReplicaSetName); err != nil {
			return "", err
		}
		// The replica set URI is used verbatim; no separator is inserted before the database name.
		return fmt.Sprintf("%s%s?replicaSet=%s", fields[core.FieldReplicaSetURI], core.DatastoreName, fields[core.FieldReplicaSetName]), nil
	default:
		return "", fmt.Errorf("unknown dependency kind %q", kind)
	}
}

func requireFields(kind core.DependencyKind, fields map[string]string, names ...string) error {
	var missing []string
	for _, name := range names {
		if fields[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &core.IncompleteDataError{Kind: kind, Missing: missing}
	}
	return nil
}
