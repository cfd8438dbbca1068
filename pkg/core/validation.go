package core

import (
	"fmt"
	"os"
	"strconv"
)

// ValidateSpec enforces basic guardrails that match the CRD schema.
// A missing admin password is deliberately not an error here: the unit
// reports it as a Blocked status so the operator can fix it in place.
func ValidateSpec(spec *GraylogSpec) error {
	if spec == nil {
		return fmt.Errorf("spec is required")
	}

	if spec.Port != nil && (*spec.Port < 1 || *spec.Port > 65535) {
		return fmt.Errorf("port must be within 1-65535, got %d", *spec.Port)
	}

	if ref := spec.AdminPasswordSecretRef; ref != nil && ref.Name == "" {
		return fmt.Errorf("adminPasswordSecretRef.name is required")
	}

	for _, kind := range AllDependencies {
		if ref := spec.Relations.Ref(kind); ref != nil && ref.Name == "" {
			return fmt.Errorf("relations.%s.name is required", kind)
		}
	}

	if spec.Workload != nil {
		switch spec.Workload.Mode {
		case "", WorkloadManaged:
		case WorkloadExternal:
			if len(spec.Workload.Selector) == 0 {
				return fmt.Errorf("workload.selector is required when workload.mode=%s", WorkloadExternal)
			}
		default:
			return fmt.Errorf("invalid workload.mode: %s", spec.Workload.Mode)
		}
	}

	return nil
}

// DefaultSpec applies safe defaults consistent with CRD defaults.
func DefaultSpec(spec *GraylogSpec) {
	if spec.Port == nil {
		defaultValue := defaultPort()
		spec.Port = &defaultValue
	}

	if spec.AdminPasswordSecretRef != nil && spec.AdminPasswordSecretRef.Key == "" {
		spec.AdminPasswordSecretRef.Key = DefaultAdminPasswordKey
	}

	if spec.Workload == nil {
		spec.Workload = &WorkloadSpec{}
	}

	if spec.Workload.Mode == "" {
		spec.Workload.Mode = WorkloadManaged
	}
}

// ServiceNameFor returns the Service resolved for the ingress address.
func ServiceNameFor(name string, spec *GraylogSpec) string {
	if spec != nil && spec.ServiceName != "" {
		return spec.ServiceName
	}
	return name
}

// WorkloadModeOf returns the effective workload mode.
func WorkloadModeOf(spec *GraylogSpec) string {
	if spec == nil || spec.Workload == nil || spec.Workload.Mode == "" {
		return WorkloadManaged
	}
	return spec.Workload.Mode
}

// PortOf returns the effective port.
func PortOf(spec *GraylogSpec) int32 {
	if spec == nil || spec.Port == nil {
		return defaultPort()
	}
	return *spec.Port
}

// defaultPort determines the listen port from environment defaults.
func defaultPort() int32 {
	if environmentValue := os.Getenv("GRAYLOG_DEFAULT_PORT"); environmentValue != "" {
		if parsed, err := strconv.Atoi(environmentValue); err == nil && parsed >= 1 && parsed <= 65535 {
			return int32(parsed)
		}
	}

	return DefaultPort
}
