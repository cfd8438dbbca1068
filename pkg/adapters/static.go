package adapters

import (
	"context"

	"graylogoperator/pkg/core"
)

// Static answers every unit query from fixed values. The offline render
// command runs the unit against it.
type Static struct {
	Password   string
	ListenPort int32
	Ready      bool
	Image      core.ImageDetails
	ImageErr   error
	Ingress    string
}

func (static *Static) AdminPassword(context.Context) (string, error) { return static.Password, nil }

func (static *Static) Port() int32 {
	if static.ListenPort == 0 {
		return core.DefaultPort
	}
	return static.ListenPort
}

func (static *Static) RuntimeReady(context.Context) (bool, error) { return static.Ready, nil }

func (static *Static) FetchImage(context.Context) (core.ImageDetails, error) {
	if static.ImageErr != nil {
		return core.ImageDetails{}, static.ImageErr
	}
	if static.Image.ImagePath == "" {
		return core.ImageDetails{}, core.ErrImageUnavailable
	}
	return static.Image, nil
}

func (static *Static) IngressAddress(context.Context) (string, error) {
	if static.Ingress == "" {
		return "", core.ErrIngressUnavailable
	}
	return static.Ingress, nil
}

// RecordingPublisher keeps the last published artifact in memory.
type RecordingPublisher struct {
	Last     *core.ConfigurationArtifact
	LastHash string
	Count    int
	Err      error
}

func (publisher *RecordingPublisher) Publish(_ context.Context, a core.ConfigurationArtifact, hash string) (PublishResult, error) {
	if publisher.Err != nil {
		return PublishResult{}, publisher.Err
	}
	publisher.Count++
	changed := hash != publisher.LastHash
	copied := a
	publisher.Last = &copied
	publisher.LastHash = hash
	return PublishResult{Changed: changed}, nil
}
