package graylog

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"graylogoperator/pkg/adapters"
	"graylogoperator/pkg/core"
	"graylogoperator/pkg/credentials"
	observabilitymetrics "graylogoperator/pkg/observability/metrics"
	"graylogoperator/pkg/registry"
	"graylogoperator/pkg/state"
)

// TriggerKind names an event delivered to a unit.
type TriggerKind string

const (
	TriggerConfigChanged      TriggerKind = "ConfigChanged"
	TriggerUpdateStatus       TriggerKind = "UpdateStatus"
	TriggerStop               TriggerKind = "Stop"
	TriggerRuntimeReady       TriggerKind = "RuntimeReady"
	TriggerDatastoreChanged   TriggerKind = "DatastoreChanged"
	TriggerDatastoreBroken    TriggerKind = "DatastoreBroken"
	TriggerSearchIndexChanged TriggerKind = "SearchIndexChanged"
	TriggerSearchIndexBroken  TriggerKind = "SearchIndexBroken"
	TriggerPeersChanged       TriggerKind = "PeersChanged"
	TriggerPeersBroken        TriggerKind = "PeersBroken"
)

type relationTrigger struct {
	kind   core.DependencyKind
	broken bool
}

var relationTriggers = map[TriggerKind]relationTrigger{
	TriggerDatastoreChanged:   {kind: core.DependencyDatastore},
	TriggerDatastoreBroken:    {kind: core.DependencyDatastore, broken: true},
	TriggerSearchIndexChanged: {kind: core.DependencySearchIndex},
	TriggerSearchIndexBroken:  {kind: core.DependencySearchIndex, broken: true},
	TriggerPeersChanged:       {kind: core.DependencyPeers},
	TriggerPeersBroken:        {kind: core.DependencyPeers, broken: true},
}

// Trigger is one queued event. Fields carries relation data for *Changed triggers.
type Trigger struct {
	Kind   TriggerKind
	Fields map[string]string
}

var (
	changedTriggers = map[core.DependencyKind]TriggerKind{
		core.DependencyDatastore:   TriggerDatastoreChanged,
		core.DependencySearchIndex: TriggerSearchIndexChanged,
		core.DependencyPeers:       TriggerPeersChanged,
	}
	brokenTriggers = map[core.DependencyKind]TriggerKind{
		core.DependencyDatastore:   TriggerDatastoreBroken,
		core.DependencySearchIndex: TriggerSearchIndexBroken,
		core.DependencyPeers:       TriggerPeersBroken,
	}
)

// RelationChanged builds the changed trigger for a dependency kind.
func RelationChanged(kind core.DependencyKind, fields map[string]string) Trigger {
	return Trigger{Kind: changedTriggers[kind], Fields: fields}
}

// RelationBroken builds the broken trigger for a dependency kind.
func RelationBroken(kind core.DependencyKind) Trigger {
	return Trigger{Kind: brokenTriggers[kind]}
}

// UnitConfig wires a Unit to its state and collaborators.
type UnitConfig struct {
	Name       string
	State      *state.State
	Status     core.UnitStatus
	Leadership adapters.Leadership
	Config     adapters.ConfigSource
	Runtime    adapters.RuntimeProbe
	Images     adapters.ImageSource
	Ingress    adapters.IngressResolver
	Publisher  adapters.Publisher

	SecretLength int
	Generator    credentials.Generator
	Log          logr.Logger
}

// Result summarizes one Drain. Artifact and Hash belong to the last pass and
// are empty when that pass did not reach publishing. PublishedHash is the hash
// of the latest artifact actually published during the drain.
type Result struct {
	Status        core.UnitStatus
	Passes        int
	Last          Outcome
	Artifact      *core.ConfigurationArtifact
	Hash          string
	Published     bool
	PublishedHash string
	Deferred      bool
	Rejected      int
	Stopped       bool
	Broken        []core.DependencyKind
}

type triggerHandler func(ctx context.Context, trigger Trigger) error

// Unit hosts one Graylog instance: it queues triggers in arrival order and
// dispatches each through its handler, running reconciliation passes as the
// handler requires.
type Unit struct {
	name        string
	state       *state.State
	leadership  adapters.Leadership
	config      adapters.ConfigSource
	runtime     adapters.RuntimeProbe
	registry    *registry.Registry
	reconciler  *Reconciler
	queue       *core.FIFO[Trigger]
	handlers    map[TriggerKind]triggerHandler
	fingerprint string
	log         logr.Logger

	result Result
}

func NewUnit(cfg UnitConfig) *Unit {
	if cfg.State == nil {
		cfg.State = state.New()
	}
	if cfg.State.Dependencies == nil {
		cfg.State.Dependencies = map[core.DependencyKind]core.DependencyDescriptor{}
	}
	if cfg.State.RelationDigests == nil {
		cfg.State.RelationDigests = map[core.DependencyKind]string{}
	}
	log := cfg.Log.WithValues("unit", cfg.Name)

	creds := credentials.NewManager(&cfg.State.Credentials, credentials.WithLength(cfg.SecretLength), credentials.WithGenerator(cfg.Generator))

	unit := &Unit{
		name:       cfg.Name,
		state:      cfg.State,
		leadership: cfg.Leadership,
		config:     cfg.Config,
		runtime:    cfg.Runtime,
		registry:   registry.New(cfg.State.Dependencies, cfg.Leadership, log),
		reconciler: NewReconciler(cfg.Name, creds, cfg.Images, cfg.Ingress, cfg.Publisher, log.WithName("reconciler")),
		queue:      core.NewFIFO[Trigger](),
		log:        log,
		result:     Result{Status: cfg.Status},
	}
	unit.fingerprint = cfg.State.Fingerprint()

	unit.handlers = map[TriggerKind]triggerHandler{
		TriggerConfigChanged: unit.onPass,
		TriggerUpdateStatus:  unit.onPass,
		TriggerRuntimeReady:  unit.onPass,
		TriggerStop:          unit.onStop,
	}
	for kind, relation := range relationTriggers {
		if relation.broken {
			unit.handlers[kind] = unit.onRelationBroken
		} else {
			unit.handlers[kind] = unit.onRelationChanged
		}
	}

	return unit
}

// Registry exposes the unit's dependency registry.
func (unit *Unit) Registry() *registry.Registry { return unit.registry }

// Enqueue appends triggers in order. Nothing runs until Drain.
func (unit *Unit) Enqueue(triggers ...Trigger) {
	unit.queue.Push(triggers...)
}

// Drain dispatches queued triggers one at a time. A handler error stops the
// drain and is returned along with the result accumulated so far.
func (unit *Unit) Drain(ctx context.Context) (Result, error) {
	for {
		trigger, ok := unit.queue.Pop()
		if !ok {
			return unit.result, nil
		}

		handle, known := unit.handlers[trigger.Kind]
		if !known {
			return unit.result, fmt.Errorf("no handler for trigger %q", trigger.Kind)
		}

		unit.log.V(1).Info("dispatching trigger", "trigger", trigger.Kind)
		if err := handle(ctx, trigger); err != nil {
			return unit.result, fmt.Errorf("%s: %w", trigger.Kind, err)
		}
	}
}

// Persist saves the state when this unit leads and the state changed since
// the unit was created. It reports whether a save happened.
func (unit *Unit) Persist(ctx context.Context, store state.Store) (bool, error) {
	if !unit.isLeader() {
		return false, nil
	}
	current := unit.state.Fingerprint()
	if current == unit.fingerprint {
		return false, nil
	}
	if err := store.Save(ctx, unit.state); err != nil {
		return false, fmt.Errorf("save state: %w", err)
	}
	unit.fingerprint = current
	return true, nil
}

func (unit *Unit) onPass(ctx context.Context, _ Trigger) error {
	return unit.pass(ctx)
}

func (unit *Unit) onStop(context.Context, Trigger) error {
	unit.result.Status = core.MaintenanceStatus(core.MessagePodTerminating)
	unit.result.Stopped = true
	return nil
}

func (unit *Unit) onRelationChanged(ctx context.Context, trigger Trigger) error {
	kind := relationTriggers[trigger.Kind].kind

	if err := unit.registry.Update(kind, trigger.Fields); err != nil {
		if errors.Is(err, core.ErrNotLeader) || errors.Is(err, core.ErrIncompleteRelationData) {
			unit.result.Rejected++
			return nil
		}
		return err
	}
	unit.state.RelationDigests[kind] = core.HashData(trigger.Fields)

	return unit.pass(ctx)
}

func (unit *Unit) onRelationBroken(ctx context.Context, trigger Trigger) error {
	kind := relationTriggers[trigger.Kind].kind

	if err := unit.registry.Clear(kind); err != nil && !errors.Is(err, core.ErrNotLeader) {
		return err
	}
	if unit.isLeader() {
		delete(unit.state.RelationDigests, kind)
	}
	unit.result.Broken = append(unit.result.Broken, kind)

	return unit.pass(ctx)
}

func (unit *Unit) pass(ctx context.Context) error {
	password, err := unit.config.AdminPassword(ctx)
	if err != nil {
		return fmt.Errorf("read admin password: %w", err)
	}
	ready, err := unit.runtime.RuntimeReady(ctx)
	if err != nil {
		return fmt.Errorf("probe runtime: %w", err)
	}

	in := Input{
		IsLeader:      unit.isLeader(),
		AdminPassword: password,
		Port:          unit.config.Port(),
		RuntimeReady:  ready,
		Dependencies:  unit.registry.Snapshot(),
	}

	outcome, err := unit.reconciler.Reconcile(ctx, in)
	if err != nil {
		return err
	}
	observabilitymetrics.RecordPass(outcome.Status.Phase)

	unit.result.Passes++
	unit.result.Last = outcome
	unit.result.Status = outcome.Status
	unit.result.Deferred = outcome.Deferred
	unit.result.Artifact = outcome.Artifact
	unit.result.Hash = outcome.Hash
	if outcome.Published {
		unit.result.Published = true
		unit.result.PublishedHash = outcome.Hash
	}
	if outcome.Artifact != nil {
		unit.state.ArtifactHash = outcome.Hash
	}
	if in.IsLeader {
		unit.state.RuntimeReady = ready
	}

	unit.log.V(1).Info("pass complete", "gate", outcome.Gate, "status", outcome.Status.String())
	return nil
}

func (unit *Unit) isLeader() bool {
	return unit.leadership != nil && unit.leadership.IsLeader()
}
