package graylog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"graylogoperator/pkg/adapters"
	"graylogoperator/pkg/artifact"
	"graylogoperator/pkg/core"
	"graylogoperator/pkg/credentials"
	observabilitymetrics "graylogoperator/pkg/observability/metrics"
	"graylogoperator/pkg/registry"
)

// Gate names the reconciliation state a pass ended in.
type Gate string

const (
	GateNotLeader              Gate = "NotLeader"
	GateMissingAdminCredential Gate = "MissingAdminCredential"
	GateMissingDependency      Gate = "MissingDependency"
	GateAwaitingRuntime        Gate = "AwaitingRuntime"
	GatePublishing             Gate = "Publishing"
)

// Input is assembled fresh for every pass.
type Input struct {
	IsLeader      bool
	AdminPassword string
	Port          int32
	RuntimeReady  bool
	Dependencies  registry.Snapshot
}

// Outcome is the result of one pass.
type Outcome struct {
	Gate      Gate
	Status    core.UnitStatus
	Artifact  *core.ConfigurationArtifact
	Hash      string
	Published bool
	// Deferred is set when the pass stopped short waiting on the ingress address.
	Deferred bool
}

// Reconciler evaluates the unit's gates in a fixed order and publishes the
// configuration artifact once all of them pass.
type Reconciler struct {
	name        string
	credentials *credentials.Manager
	images      adapters.ImageSource
	ingress     adapters.IngressResolver
	publisher   adapters.Publisher
	log         logr.Logger
}

func NewReconciler(name string, creds *credentials.Manager, images adapters.ImageSource, ingress adapters.IngressResolver, publisher adapters.Publisher, log logr.Logger) *Reconciler {
	return &Reconciler{
		name:        name,
		credentials: creds,
		images:      images,
		ingress:     ingress,
		publisher:   publisher,
		log:         log,
	}
}

// Reconcile runs one pass. Configuration, dependency and image problems are
// reported through the outcome status; only credential generation, ingress
// lookup and publisher failures are returned as errors.
func (reconciler *Reconciler) Reconcile(ctx context.Context, in Input) (Outcome, error) {
	if !in.IsLeader {
		return Outcome{Gate: GateNotLeader, Status: core.ActiveStatus()}, nil
	}

	if in.AdminPassword == "" {
		return Outcome{Gate: GateMissingAdminCredential, Status: core.BlockedStatus(core.MessageNeedAdminPassword)}, nil
	}

	if missing := in.Dependencies.Missing(core.RequiredDependencies); len(missing) > 0 {
		return Outcome{Gate: GateMissingDependency, Status: core.BlockedStatus(missingDependencyMessage(missing))}, nil
	}

	if !in.RuntimeReady {
		return Outcome{Gate: GateAwaitingRuntime, Status: core.MaintenanceStatus(core.MessageWaitingForStartup)}, nil
	}

	return reconciler.publish(ctx, in)
}

func (reconciler *Reconciler) publish(ctx context.Context, in Input) (Outcome, error) {
	outcome := Outcome{Gate: GatePublishing}

	image, err := reconciler.images.FetchImage(ctx)
	if err != nil {
		reconciler.log.Error(err, "failed to fetch image information")
		outcome.Status = core.BlockedStatus(core.MessageImageFetchFailed)
		return outcome, nil
	}

	ingress, err := reconciler.ingress.IngressAddress(ctx)
	if errors.Is(err, core.ErrIngressUnavailable) {
		reconciler.log.Info("deferring publish until the ingress address is assigned", "reason", err.Error())
		outcome.Status = core.MaintenanceStatus(core.MessageWaitingForIngress)
		outcome.Deferred = true
		return outcome, nil
	}
	if err != nil {
		return outcome, fmt.Errorf("resolve ingress address: %w", err)
	}

	secret, err := reconciler.credentials.Secret()
	if err != nil {
		return outcome, err
	}

	built, err := artifact.Build(artifact.Input{
		Name:           reconciler.name,
		IsLeader:       in.IsLeader,
		Port:           in.Port,
		IngressAddress: ingress,
		Secret:         secret,
		PasswordHash:   reconciler.credentials.HashPassword(in.AdminPassword),
		Image:          image,
		SearchIndex:    in.Dependencies.Endpoint(core.DependencySearchIndex),
		Datastore:      in.Dependencies.Endpoint(core.DependencyDatastore),
	})
	if err != nil {
		return outcome, fmt.Errorf("build artifact: %w", err)
	}

	hash, err := artifact.Hash(built)
	if err != nil {
		return outcome, fmt.Errorf("hash artifact: %w", err)
	}

	result, err := reconciler.publisher.Publish(ctx, built, hash)
	if err != nil {
		observabilitymetrics.RecordPublish(observabilitymetrics.PublishError)
		return outcome, fmt.Errorf("publish artifact: %w", err)
	}
	if result.Changed {
		observabilitymetrics.RecordPublish(observabilitymetrics.PublishPublished)
	} else {
		observabilitymetrics.RecordPublish(observabilitymetrics.PublishUnchanged)
	}

	outcome.Status = core.ActiveStatus()
	outcome.Artifact = &built
	outcome.Hash = hash
	outcome.Published = result.Changed
	return outcome, nil
}

// missingDependencyMessage names every unmet dependency in one message.
func missingDependencyMessage(missing []core.DependencyKind) string {
	names := make([]string, len(missing))
	for i, kind := range missing {
		names[i] = string(kind)
	}
	if len(names) == 1 {
		return fmt.Sprintf("need %s relation", names[0])
	}
	return fmt.Sprintf("need %s and %s relations", strings.Join(names[:len(names)-1], ", "), names[len(names)-1])
}
