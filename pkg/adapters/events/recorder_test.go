package events

import (
	"fmt"
	"strings"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/tools/record"

	"graylogoperator/pkg/core"
)

func drain(recorder *record.FakeRecorder) []string {
	var events []string
	for {
		select {
		case event := <-recorder.Events:
			events = append(events, event)
		default:
			return events
		}
	}
}

func TestRecorderHelpers(t *testing.T) {
	fake := record.NewFakeRecorder(10)
	rec := NewRecorder(fake)
	obj := &corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Namespace: "logging", Name: "graylog"}}

	rec.StatusChanged(obj, core.MaintenanceStatus(core.MessageWaitingForStartup), core.ActiveStatus())
	rec.StatusChanged(obj, core.ActiveStatus(), core.BlockedStatus("need mongodb relation"))
	rec.ArtifactPublished(obj, "0123456789abcdef0123")
	rec.RelationBroken(obj, core.DependencySearchIndex)
	rec.Error(obj, fmt.Errorf("boom"))

	events := drain(fake)
	expected := []string{
		"Normal StatusChanged status changed to Active",
		"Warning StatusChanged status changed to Blocked: need mongodb relation",
		"Normal ArtifactPublished published configuration 0123456789ab",
		"Warning RelationBroken elasticsearch relation removed",
		"Warning ReconcileError reconciliation error: boom",
	}
	if len(events) != len(expected) {
		t.Fatalf("expected %d events, got %d: %v", len(expected), len(events), events)
	}
	for i, want := range expected {
		if !strings.HasPrefix(events[i], want) {
			t.Fatalf("event %d: expected %q, got %q", i, want, events[i])
		}
	}
}

func TestRecorderSkipsUnchangedStatus(t *testing.T) {
	fake := record.NewFakeRecorder(2)
	rec := NewRecorder(fake)
	obj := &corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Namespace: "logging", Name: "graylog"}}

	rec.StatusChanged(obj, core.ActiveStatus(), core.ActiveStatus())
	rec.Error(obj, nil)

	if events := drain(fake); len(events) != 0 {
		t.Fatalf("expected no events, got %v", events)
	}
}

func TestRecorderNilSafe(t *testing.T) {
	var rec *Recorder
	obj := &corev1.ConfigMap{}
	rec.StatusChanged(obj, core.ActiveStatus(), core.BlockedStatus("x"))
	rec.ArtifactPublished(obj, "hash")
	rec.RelationBroken(obj, core.DependencyDatastore)
	rec.Error(obj, fmt.Errorf("boom"))

	NewRecorder(nil).Error(obj, fmt.Errorf("boom"))
}
