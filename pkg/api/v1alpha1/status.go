package v1alpha1

import (
	"time"

	"graylogoperator/pkg/agents/status"
	"graylogoperator/pkg/core"
)

// ApplyObservation updates status fields after a reconcile.
func (graylog *Graylog) ApplyObservation(observation status.Observation, now time.Time) {
	graylog.Status = status.Compute(graylog.Status, observation, now)
}

// UnitStatus returns the last reported unit status.
func (graylog *Graylog) UnitStatus() core.UnitStatus {
	return core.UnitStatus{Phase: graylog.Status.Phase, Message: graylog.Status.Message}
}

// ConfigChanged reports whether the spec changed since the last observed reconcile.
func (graylog *Graylog) ConfigChanged() bool {
	return graylog.Generation != graylog.Status.ObservedGeneration
}
