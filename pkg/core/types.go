package core

// GraylogSpec models the desired state of a Graylog deployment.
type GraylogSpec struct {
	Port                   *int32        `json:"port,omitempty"`
	AdminPasswordSecretRef *SecretKeyRef `json:"adminPasswordSecretRef,omitempty"`
	Image                  ImageSpec     `json:"image"`
	Relations              RelationRefs  `json:"relations,omitempty"`
	Workload               *WorkloadSpec `json:"workload,omitempty"`
	ServiceName            string        `json:"serviceName,omitempty"`
}

// SecretKeyRef selects a key of a Secret in the resource's namespace.
type SecretKeyRef struct {
	Name string `json:"name"`
	Key  string `json:"key,omitempty"`
}

// ImageSpec is the workload image resource.
type ImageSpec struct {
	Name       string `json:"name"`
	PullSecret string `json:"pullSecret,omitempty"`
}

// ObjectRef references a namespaced object by name.
type ObjectRef struct {
	Name string `json:"name"`
}

// RelationRefs points at the ConfigMaps carrying each remote side's relation data.
type RelationRefs struct {
	Elasticsearch *ObjectRef `json:"elasticsearch,omitempty"`
	MongoDB       *ObjectRef `json:"mongodb,omitempty"`
	Peers         *ObjectRef `json:"peers,omitempty"`
}

// Ref returns the relation reference for the dependency kind, or nil.
func (refs RelationRefs) Ref(kind DependencyKind) *ObjectRef {
	switch kind {
	case DependencySearchIndex:
		return refs.Elasticsearch
	case DependencyDatastore:
		return refs.MongoDB
	case DependencyPeers:
		return refs.Peers
	default:
		return nil
	}
}

// WorkloadSpec selects how the configuration artifact is applied.
type WorkloadSpec struct {
	Mode     string            `json:"mode,omitempty"` // Managed|External
	Selector map[string]string `json:"selector,omitempty"`
}

// GraylogStatus reports controller state.
type GraylogStatus struct {
	Phase              Phase              `json:"phase,omitempty"`
	Message            string             `json:"message,omitempty"`
	Conditions         []Condition        `json:"conditions,omitempty"`
	Dependencies       []DependencyStatus `json:"dependencies,omitempty"`
	ArtifactHash       string             `json:"artifactHash,omitempty"`
	ObservedGeneration int64              `json:"observedGeneration,omitempty"`
	LastReconcileTime  string             `json:"lastReconcileTime,omitempty"` // RFC3339
}

// Condition is a standard status condition.
type Condition struct {
	Type               string `json:"type"`
	Status             string `json:"status"` // True|False|Unknown
	Reason             string `json:"reason,omitempty"`
	Message            string `json:"message,omitempty"`
	LastTransitionTime string `json:"lastTransitionTime,omitempty"`
}

// DependencyStatus summarizes one registry entry for the resource status.
type DependencyStatus struct {
	Kind      DependencyKind `json:"kind"`
	Satisfied bool           `json:"satisfied"`
	Version   int64          `json:"version,omitempty"`
}

// DependencyKind names an external dependency reached through a relation.
type DependencyKind string

const (
	DependencyDatastore   DependencyKind = "mongodb"
	DependencySearchIndex DependencyKind = "elasticsearch"
	DependencyPeers       DependencyKind = "peers"
)

// RequiredDependencies lists, in reporting order, the dependencies that gate publishing.
var RequiredDependencies = []DependencyKind{DependencyDatastore, DependencySearchIndex}

// AllDependencies lists every tracked dependency kind.
var AllDependencies = []DependencyKind{DependencyDatastore, DependencySearchIndex, DependencyPeers}

// DependencyDescriptor is the connection state of one dependency.
// Endpoint is either a complete connection string or empty.
type DependencyDescriptor struct {
	Kind     DependencyKind `json:"kind"`
	Endpoint string         `json:"endpoint,omitempty"`
	Version  int64          `json:"version"`
}

// Satisfied reports whether a connection descriptor has been received.
func (d DependencyDescriptor) Satisfied() bool { return d.Endpoint != "" }

// CredentialMaterial holds the generated secret and the admin password digest.
type CredentialMaterial struct {
	Secret       string `json:"secret,omitempty"`
	PasswordHash string `json:"-"`
}

// Phase is the unit's operating status.
type Phase string

const (
	PhaseActive      Phase = "Active"
	PhaseMaintenance Phase = "Maintenance"
	PhaseBlocked     Phase = "Blocked"
)

// UnitStatus is the outcome of a reconciliation pass.
type UnitStatus struct {
	Phase   Phase  `json:"phase"`
	Message string `json:"message,omitempty"`
}

func ActiveStatus() UnitStatus { return UnitStatus{Phase: PhaseActive} }

func MaintenanceStatus(message string) UnitStatus {
	return UnitStatus{Phase: PhaseMaintenance, Message: message}
}

func BlockedStatus(message string) UnitStatus {
	return UnitStatus{Phase: PhaseBlocked, Message: message}
}

func (s UnitStatus) String() string {
	if s.Message == "" {
		return string(s.Phase)
	}
	return string(s.Phase) + ": " + s.Message
}

// ImageDetails is the fetched image resource.
type ImageDetails struct {
	ImagePath  string `json:"imagePath"`
	PullSecret string `json:"pullSecret,omitempty"`
}

// Probe is an HTTP GET health check against the workload.
type Probe struct {
	Path                string `json:"path"`
	Port                int32  `json:"port"`
	InitialDelaySeconds int32  `json:"initialDelaySeconds"`
	TimeoutSeconds      int32  `json:"timeoutSeconds"`
}

// ConfigurationArtifact is the computed workload configuration handed to the publisher.
type ConfigurationArtifact struct {
	Name           string            `json:"name"`
	Image          ImageDetails      `json:"image"`
	Port           int32             `json:"port"`
	BindAddress    string            `json:"bindAddress"`
	ExternalURI    string            `json:"externalURI"`
	IngressAddress string            `json:"ingressAddress"`
	Environment    map[string]string `json:"environment"`
	LivenessProbe  Probe             `json:"livenessProbe"`
	ReadinessProbe Probe             `json:"readinessProbe"`
}
