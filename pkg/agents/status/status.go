package status

import (
	"fmt"
	"time"

	"graylogoperator/pkg/core"
)

// Observation is what one controller reconcile learned about a Graylog unit.
type Observation struct {
	Unit         core.UnitStatus
	Dependencies []core.DependencyStatus
	ArtifactHash string
	Generation   int64
	Err          error
}

// Compute builds a GraylogStatus from the observation, keeping condition
// transition times when a condition did not change.
func Compute(previous core.GraylogStatus, observation Observation, now time.Time) core.GraylogStatus {
	status := previous
	timestamp := now.UTC().Format(time.RFC3339)
	status.LastReconcileTime = timestamp
	status.Phase = observation.Unit.Phase
	status.Message = observation.Unit.Message
	status.ObservedGeneration = observation.Generation
	if observation.Dependencies != nil {
		status.Dependencies = append([]core.DependencyStatus(nil), observation.Dependencies...)
	}
	if observation.ArtifactHash != "" {
		status.ArtifactHash = observation.ArtifactHash
	}
	status.Conditions = mergeConditions(previous.Conditions, desiredConditions(observation, timestamp))
	return status
}

func desiredConditions(observation Observation, timestamp string) []core.Condition {
	ready := core.Condition{Type: core.CondReady, Status: "True", Reason: "Active", Message: "graylog is active", LastTransitionTime: timestamp}
	progressing := core.Condition{Type: core.CondProgressing, Status: "False", Reason: "Idle", Message: "no pending work", LastTransitionTime: timestamp}
	degraded := core.Condition{Type: core.CondDegraded, Status: "False", Reason: "Healthy", Message: "no errors", LastTransitionTime: timestamp}

	unit := observation.Unit
	switch {
	case observation.Err != nil:
		ready.Status = "False"
		ready.Reason = "Error"
		ready.Message = fmt.Sprintf("reconciliation failed: %v", observation.Err)
		progressing.Reason = "Error"
		progressing.Message = "paused due to error"
		degraded.Status = "True"
		degraded.Reason = "Error"
		degraded.Message = ready.Message
	case unit.Phase == core.PhaseBlocked:
		ready.Status = "False"
		ready.Reason = "Blocked"
		ready.Message = unit.Message
		progressing.Reason = "Blocked"
		progressing.Message = "waiting for operator action"
		degraded.Status = "True"
		degraded.Reason = "Blocked"
		degraded.Message = unit.Message
	case unit.Phase == core.PhaseMaintenance:
		ready.Status = "False"
		ready.Reason = "Maintenance"
		ready.Message = unit.Message
		progressing.Status = "True"
		progressing.Reason = "Maintenance"
		progressing.Message = unit.Message
	}

	return []core.Condition{ready, progressing, degraded}
}

func mergeConditions(previous []core.Condition, desired []core.Condition) []core.Condition {
	byType := map[string]core.Condition{}
	for _, cond := range previous {
		byType[cond.Type] = cond
	}
	result := make([]core.Condition, 0, len(desired))
	for _, cond := range desired {
		if prev, ok := byType[cond.Type]; ok {
			if prev.Status == cond.Status && prev.Reason == cond.Reason && prev.Message == cond.Message {
				cond.LastTransitionTime = prev.LastTransitionTime
			}
		}
		result = append(result, cond)
	}
	return result
}
