package graylog

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-logr/logr"

	"graylogoperator/pkg/adapters"
	"graylogoperator/pkg/core"
	"graylogoperator/pkg/state"
)

var (
	datastoreFields   = map[string]string{core.FieldReplicaSetURI: "mongo://10.0.0.2:14001", core.FieldReplicaSetName: "rs0"}
	searchIndexFields = map[string]string{core.FieldIngressAddress: "10.183.1.2", core.FieldPort: "9200"}
)

type memoryStore struct {
	saved *state.State
	saves int
}

func (m *memoryStore) Load(context.Context) (*state.State, error) {
	if m.saved == nil {
		return state.New(), nil
	}
	return m.saved, nil
}

func (m *memoryStore) Save(_ context.Context, s *state.State) error {
	m.saves++
	m.saved = s
	return nil
}

type unitFixture struct {
	state     *state.State
	static    *adapters.Static
	publisher *adapters.RecordingPublisher
	generated int
}

func newUnitFixture() *unitFixture {
	return &unitFixture{
		state:     state.New(),
		static:    &adapters.Static{Password: "admin", Ready: true, Image: core.ImageDetails{ImagePath: "graylog/graylog:3.3"}, Ingress: "10.1.1.1"},
		publisher: &adapters.RecordingPublisher{},
	}
}

func (f *unitFixture) unit(leader bool) *Unit {
	return NewUnit(UnitConfig{
		Name:         "graylog",
		State:        f.state,
		Leadership:   adapters.StaticLeadership(leader),
		Config:       f.static,
		Runtime:      f.static,
		Images:       f.static,
		Ingress:      f.static,
		Publisher:    f.publisher,
		SecretLength: 16,
		Generator: func(length int) (string, error) {
			f.generated++
			return fmt.Sprintf("%0*d", length, f.generated), nil
		},
		Log: logr.Discard(),
	})
}

func TestRelationChangesRunPasses(t *testing.T) {
	fixture := newUnitFixture()
	unit := fixture.unit(true)

	unit.Enqueue(RelationChanged(core.DependencyDatastore, datastoreFields))
	first, err := unit.Drain(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Status != core.BlockedStatus("need elasticsearch relation") {
		t.Fatalf("unexpected status %v", first.Status)
	}

	unit.Enqueue(RelationChanged(core.DependencySearchIndex, searchIndexFields))
	result, err := unit.Drain(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Passes != 2 {
		t.Fatalf("expected 2 passes, got %d", result.Passes)
	}
	if result.Status != core.ActiveStatus() || !result.Published {
		t.Fatalf("expected active published result, got %+v", result)
	}
	if fixture.state.ArtifactHash != result.Hash {
		t.Fatalf("expected artifact hash recorded in state")
	}
	if fixture.state.RelationDigests[core.DependencySearchIndex] != core.HashData(searchIndexFields) {
		t.Fatalf("expected relation digest recorded")
	}
}

func TestPartialRelationDataIsRejectedWithoutPass(t *testing.T) {
	fixture := newUnitFixture()
	unit := fixture.unit(true)

	unit.Enqueue(RelationChanged(core.DependencySearchIndex, map[string]string{core.FieldPort: "9200"}))
	result, err := unit.Drain(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Passes != 0 || result.Rejected != 1 {
		t.Fatalf("expected one rejection and no pass, got %+v", result)
	}
	if unit.Registry().IsSatisfied(core.DependencySearchIndex) {
		t.Fatalf("partial data must not satisfy the dependency")
	}
	if _, recorded := fixture.state.RelationDigests[core.DependencySearchIndex]; recorded {
		t.Fatalf("rejected data must not be recorded")
	}
}

func TestBrokenAfterChangedBlocksAgain(t *testing.T) {
	fixture := newUnitFixture()
	unit := fixture.unit(true)

	unit.Enqueue(
		RelationChanged(core.DependencyDatastore, datastoreFields),
		RelationChanged(core.DependencySearchIndex, searchIndexFields),
		RelationBroken(core.DependencySearchIndex),
	)
	result, err := unit.Drain(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Passes != 3 {
		t.Fatalf("expected 3 passes, got %d", result.Passes)
	}
	if result.Status != core.BlockedStatus("need elasticsearch relation") {
		t.Fatalf("unexpected status %v", result.Status)
	}
	if len(result.Broken) != 1 || result.Broken[0] != core.DependencySearchIndex {
		t.Fatalf("expected broken elasticsearch, got %v", result.Broken)
	}
	if _, recorded := fixture.state.RelationDigests[core.DependencySearchIndex]; recorded {
		t.Fatalf("expected digest removed on broken relation")
	}
	if fixture.state.Dependencies[core.DependencySearchIndex].Endpoint != "" {
		t.Fatalf("expected endpoint cleared from state")
	}
	if result.Artifact != nil || result.Hash != "" {
		t.Fatalf("blocked pass must not report the earlier artifact, got %q", result.Hash)
	}
	if !result.Published || result.PublishedHash == "" || result.PublishedHash != fixture.state.ArtifactHash {
		t.Fatalf("expected the published hash kept for the drain, got %+v", result)
	}
}

func TestFollowerReportsActiveAndNeverMutates(t *testing.T) {
	fixture := newUnitFixture()
	unit := fixture.unit(false)
	store := &memoryStore{}

	unit.Enqueue(
		RelationChanged(core.DependencyDatastore, datastoreFields),
		RelationBroken(core.DependencyPeers),
		Trigger{Kind: TriggerUpdateStatus},
	)
	result, err := unit.Drain(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Rejected != 1 || result.Passes != 2 {
		t.Fatalf("expected rejected change and two passes, got %+v", result)
	}
	if result.Status != core.ActiveStatus() || fixture.publisher.Count != 0 {
		t.Fatalf("expected active follower without publishing, got %+v", result)
	}

	saved, err := unit.Persist(context.Background(), store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved || store.saves != 0 {
		t.Fatalf("follower must not save state")
	}
}

func TestStopSetsTerminatingWithoutPass(t *testing.T) {
	fixture := newUnitFixture()
	unit := fixture.unit(true)

	unit.Enqueue(Trigger{Kind: TriggerStop})
	result, err := unit.Drain(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Passes != 0 || !result.Stopped {
		t.Fatalf("expected stop without pass, got %+v", result)
	}
	if result.Status != core.MaintenanceStatus("Pod is terminating.") {
		t.Fatalf("unexpected status %v", result.Status)
	}
}

func TestTriggersDrainInArrivalOrder(t *testing.T) {
	fixture := newUnitFixture()
	unit := fixture.unit(true)

	unit.Enqueue(Trigger{Kind: TriggerConfigChanged}, Trigger{Kind: TriggerStop})
	result, err := unit.Drain(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != core.MaintenanceStatus("Pod is terminating.") || result.Passes != 1 {
		t.Fatalf("expected pass then stop, got %+v", result)
	}

	unit.Enqueue(Trigger{Kind: TriggerStop}, Trigger{Kind: TriggerUpdateStatus})
	result, err = unit.Drain(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != core.BlockedStatus("need mongodb and elasticsearch relations") {
		t.Fatalf("expected last pass to win, got %v", result.Status)
	}
}

func TestSecretGeneratedOnceAcrossUnits(t *testing.T) {
	fixture := newUnitFixture()
	triggers := []Trigger{
		RelationChanged(core.DependencyDatastore, datastoreFields),
		RelationChanged(core.DependencySearchIndex, searchIndexFields),
	}

	first := fixture.unit(true)
	first.Enqueue(triggers...)
	if _, err := first.Drain(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	secret := fixture.state.Credentials.Secret

	second := fixture.unit(true)
	second.Enqueue(Trigger{Kind: TriggerConfigChanged})
	result, err := second.Drain(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fixture.generated != 1 {
		t.Fatalf("expected secret generated once, got %d", fixture.generated)
	}
	if len(secret) != 16 || fixture.state.Credentials.Secret != secret {
		t.Fatalf("expected stable 16 character secret, got %q", fixture.state.Credentials.Secret)
	}
	if result.Artifact.Environment[core.EnvPasswordSecret] != secret {
		t.Fatalf("expected published secret to match stored secret")
	}
}

func TestPersistSavesOnlyChangedState(t *testing.T) {
	fixture := newUnitFixture()
	unit := fixture.unit(true)
	store := &memoryStore{}

	saved, err := unit.Persist(context.Background(), store)
	if err != nil || saved {
		t.Fatalf("expected no save for untouched state, saved=%v err=%v", saved, err)
	}

	unit.Enqueue(RelationChanged(core.DependencyDatastore, datastoreFields))
	if _, err := unit.Drain(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, err = unit.Persist(context.Background(), store)
	if err != nil || !saved {
		t.Fatalf("expected save after relation change, saved=%v err=%v", saved, err)
	}
	saved, err = unit.Persist(context.Background(), store)
	if err != nil || saved {
		t.Fatalf("expected no second save, saved=%v err=%v", saved, err)
	}
	if store.saves != 1 {
		t.Fatalf("expected one save, got %d", store.saves)
	}
}

func TestUnknownTriggerStopsDrain(t *testing.T) {
	unit := newUnitFixture().unit(true)

	unit.Enqueue(Trigger{Kind: "Bogus"}, Trigger{Kind: TriggerUpdateStatus})
	result, err := unit.Drain(context.Background())
	if err == nil {
		t.Fatalf("expected error for unknown trigger")
	}
	if result.Passes != 0 {
		t.Fatalf("expected drain to stop before later triggers")
	}
}
