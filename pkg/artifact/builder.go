// Package artifact builds the Graylog configuration artifact and renders it
// into the Kubernetes objects that carry it to the workload.
package artifact

import (
	"fmt"
	"net"
	"strconv"

	"sigs.k8s.io/yaml"

	"graylogoperator/pkg/core"
)

// Input is everything the builder needs for one pass.
type Input struct {
	Name           string
	IsLeader       bool
	Port           int32
	IngressAddress string
	Secret         string
	PasswordHash   string
	Image          core.ImageDetails
	SearchIndex    string
	Datastore      string
}

// Build computes the configuration artifact. It returns an error instead of
// a partially populated artifact when any precondition is unmet.
func Build(in Input) (core.ConfigurationArtifact, error) {
	if !in.IsLeader {
		return core.ConfigurationArtifact{}, core.ErrNotLeader
	}
	if in.Port < 1 || in.Port > 65535 {
		return core.ConfigurationArtifact{}, fmt.Errorf("port %d out of range", in.Port)
	}
	if in.SearchIndex == "" || in.Datastore == "" {
		return core.ConfigurationArtifact{}, fmt.Errorf("build artifact: %w", core.ErrIncompleteRelationData)
	}
	if in.Secret == "" || in.PasswordHash == "" {
		return core.ConfigurationArtifact{}, fmt.Errorf("build artifact: credential material not initialized")
	}
	if in.IngressAddress == "" {
		return core.ConfigurationArtifact{}, core.ErrIngressUnavailable
	}
	if in.Image.ImagePath == "" {
		return core.ConfigurationArtifact{}, core.ErrImageUnavailable
	}

	port := strconv.Itoa(int(in.Port))
	bind := net.JoinHostPort("0.0.0.0", port)
	external := fmt.Sprintf("http://%s/", net.JoinHostPort(in.IngressAddress, port))
	probe := core.Probe{
		Path:                core.HealthCheckPath,
		Port:                in.Port,
		InitialDelaySeconds: core.ProbeInitialDelaySeconds,
		TimeoutSeconds:      core.ProbeTimeoutSeconds,
	}

	return core.ConfigurationArtifact{
		Name:           in.Name,
		Image:          in.Image,
		Port:           in.Port,
		BindAddress:    bind,
		ExternalURI:    external,
		IngressAddress: in.IngressAddress,
		Environment: map[string]string{
			core.EnvIsMaster:               strconv.FormatBool(in.IsLeader),
			core.EnvPasswordSecret:         in.Secret,
			core.EnvRootPasswordSHA2:       in.PasswordHash,
			core.EnvHTTPBindAddress:        bind,
			core.EnvHTTPPublishURI:         external,
			core.EnvHTTPExternalURI:        external,
			core.EnvElasticsearchHosts:     in.SearchIndex,
			core.EnvElasticsearchDiscovery: "true",
			core.EnvMongoDBURI:             in.Datastore,
		},
		LivenessProbe:  probe,
		ReadinessProbe: probe,
	}, nil
}

// Marshal renders the artifact as YAML with sorted keys.
func Marshal(a core.ConfigurationArtifact) ([]byte, error) {
	return yaml.Marshal(a)
}

// Hash fingerprints the artifact; equal artifacts hash equally.
func Hash(a core.ConfigurationArtifact) (string, error) {
	raw, err := Marshal(a)
	if err != nil {
		return "", err
	}
	return core.HashBytes(raw), nil
}
