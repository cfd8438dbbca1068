package webhooks

import (
	"fmt"
	"os"

	core "graylogoperator/pkg/core"
)

const (
	// strictAdminPasswordEnv rejects resources that do not reference an
	// admin password Secret instead of letting them sit Blocked.
	strictAdminPasswordEnv = "STRICT_ADMIN_PASSWORD_GUARD"
	// immutableWorkloadModeEnv forbids switching between Managed and
	// External workloads on update.
	immutableWorkloadModeEnv = "ENFORCE_WORKLOAD_MODE_IMMUTABILITY"
)

// ValidateGraylog evaluates the new spec against validation rules and
// optional policy guardrails. The old spec should be provided for update
// operations; pass nil on create.
func ValidateGraylog(newSpec, oldSpec *core.GraylogSpec) error {
	if err := core.ValidateSpec(newSpec); err != nil {
		return err
	}

	if parseBoolEnv(os.Getenv(strictAdminPasswordEnv)) {
		if ref := newSpec.AdminPasswordSecretRef; ref == nil || ref.Name == "" {
			return fmt.Errorf("adminPasswordSecretRef is required when %s is enabled", strictAdminPasswordEnv)
		}
	}

	if parseBoolEnv(os.Getenv(immutableWorkloadModeEnv)) && oldSpec != nil {
		if core.WorkloadModeOf(oldSpec) != core.WorkloadModeOf(newSpec) {
			return fmt.Errorf("workload.mode is immutable when %s is enabled", immutableWorkloadModeEnv)
		}
	}

	return nil
}
