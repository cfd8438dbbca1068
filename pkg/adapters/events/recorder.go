package events

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/tools/record"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"graylogoperator/pkg/core"
)

// Event reasons emitted on Graylog resources.
const (
	ReasonStatusChanged     = "StatusChanged"
	ReasonArtifactPublished = "ArtifactPublished"
	ReasonRelationBroken    = "RelationBroken"
	ReasonReconcileError    = "ReconcileError"
)

// Recorder wraps a controller-runtime EventRecorder with helper methods
// specific to Graylog reconciliation.
//
// The helper methods guard against nil receivers so tests can pass a nil
// recorder when event emission is not under test.
type Recorder struct {
	recorder record.EventRecorder
}

// NewRecorder constructs a Recorder from the provided controller-runtime EventRecorder.
func NewRecorder(rec record.EventRecorder) *Recorder {
	return &Recorder{recorder: rec}
}

// StatusChanged records a unit status transition. Blocked statuses are warnings.
func (r *Recorder) StatusChanged(obj client.Object, previous, current core.UnitStatus) {
	if r == nil || r.recorder == nil || previous == current {
		return
	}
	eventType := corev1.EventTypeNormal
	if current.Phase == core.PhaseBlocked {
		eventType = corev1.EventTypeWarning
	}
	r.recorder.Eventf(obj, eventType, ReasonStatusChanged, "status changed to %s", current)
}

// ArtifactPublished records that a new configuration artifact was applied.
func (r *Recorder) ArtifactPublished(obj client.Object, hash string) {
	if r == nil || r.recorder == nil {
		return
	}
	r.recorder.Eventf(obj, corev1.EventTypeNormal, ReasonArtifactPublished, "published configuration %s", shortHash(hash))
}

// RelationBroken records that a dependency relation went away.
func (r *Recorder) RelationBroken(obj client.Object, kind core.DependencyKind) {
	if r == nil || r.recorder == nil {
		return
	}
	r.recorder.Eventf(obj, corev1.EventTypeWarning, ReasonRelationBroken, "%s relation removed", kind)
}

// Error records an event indicating reconciliation failed.
func (r *Recorder) Error(obj client.Object, err error) {
	if r == nil || r.recorder == nil || err == nil {
		return
	}
	r.recorder.Eventf(obj, corev1.EventTypeWarning, ReasonReconcileError, "reconciliation error: %v", err)
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
