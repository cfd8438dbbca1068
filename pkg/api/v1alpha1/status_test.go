package v1alpha1

import (
	"testing"
	"time"

	"graylogoperator/pkg/agents/status"
	"graylogoperator/pkg/core"
)

func TestApplyObservation(t *testing.T) {
	graylog := sampleGraylog()
	graylog.Generation = 4
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	if !graylog.ConfigChanged() {
		t.Fatalf("unobserved generation should read as config change")
	}

	graylog.ApplyObservation(status.Observation{Unit: core.BlockedStatus(core.MessageNeedAdminPassword), Generation: 4}, now)

	if graylog.UnitStatus() != core.BlockedStatus(core.MessageNeedAdminPassword) {
		t.Fatalf("unexpected unit status %s", graylog.UnitStatus())
	}
	if graylog.ConfigChanged() {
		t.Fatalf("observed generation should match")
	}
	if len(graylog.Status.Conditions) != 3 {
		t.Fatalf("expected three conditions, got %+v", graylog.Status.Conditions)
	}
	if graylog.Status.Conditions[0].Type != core.CondReady || graylog.Status.Conditions[0].Status != "False" {
		t.Fatalf("expected Ready False, got %+v", graylog.Status.Conditions[0])
	}
}
