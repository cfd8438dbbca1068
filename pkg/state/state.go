// Package state persists the per-unit data that must survive restarts:
// dependency descriptors and the generated secret.
package state

import (
	"context"

	"sigs.k8s.io/yaml"

	"graylogoperator/pkg/core"
)

// StateKey is the data key holding the serialized state.
const StateKey = "state.yaml"

// State is the persisted per-unit data. RelationDigests fingerprints the last
// relation data handled per kind and RuntimeReady is the readiness seen by the
// last pass; both let the controller tell new triggers from resyncs.
type State struct {
	Dependencies    map[core.DependencyKind]core.DependencyDescriptor `json:"dependencies"`
	Credentials     core.CredentialMaterial                           `json:"credentials"`
	RelationDigests map[core.DependencyKind]string                    `json:"relationDigests,omitempty"`
	RuntimeReady    bool                                              `json:"runtimeReady,omitempty"`
	ArtifactHash    string                                            `json:"artifactHash,omitempty"`
}

// New returns an empty state with an entry for every dependency kind.
func New() *State {
	s := &State{Dependencies: map[core.DependencyKind]core.DependencyDescriptor{}}
	s.normalize()
	return s
}

func (s *State) normalize() {
	if s.Dependencies == nil {
		s.Dependencies = map[core.DependencyKind]core.DependencyDescriptor{}
	}
	if s.RelationDigests == nil {
		s.RelationDigests = map[core.DependencyKind]string{}
	}
	for _, kind := range core.AllDependencies {
		descriptor := s.Dependencies[kind]
		descriptor.Kind = kind
		s.Dependencies[kind] = descriptor
	}
}

// Marshal renders the state as YAML. Map keys are sorted so output is stable.
func (s *State) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Unmarshal parses YAML produced by Marshal. Empty input yields a fresh state.
func Unmarshal(raw []byte) (*State, error) {
	s := New()
	if len(raw) == 0 {
		return s, nil
	}
	if err := yaml.Unmarshal(raw, s); err != nil {
		return nil, err
	}
	s.normalize()
	return s, nil
}

// Fingerprint identifies the persisted content; equal fingerprints mean a save can be skipped.
func (s *State) Fingerprint() string {
	raw, err := s.Marshal()
	if err != nil {
		return ""
	}
	return core.HashBytes(raw)
}

// Store loads and saves unit state.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, s *State) error
}
