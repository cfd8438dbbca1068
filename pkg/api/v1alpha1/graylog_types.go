package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"graylogoperator/pkg/core"
)

// GraylogSpec defines the desired state of Graylog.
type GraylogSpec = core.GraylogSpec

// GraylogStatus defines observed state.
type GraylogStatus = core.GraylogStatus

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=gl
// +kubebuilder:printcolumn:name="Phase",type="string",JSONPath=".status.phase"
// +kubebuilder:printcolumn:name="Message",type="string",JSONPath=".status.message"
// +kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp"

// Graylog is the Schema for the API.
type Graylog struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   GraylogSpec   `json:"spec,omitempty"`
	Status GraylogStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// GraylogList contains a list of Graylog.
type GraylogList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Graylog `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Graylog{}, &GraylogList{})
}

// OwnerReferences returns the controller reference placed on every object the operator creates.
func (graylog *Graylog) OwnerReferences() []metav1.OwnerReference {
	if graylog.UID == "" {
		return nil
	}
	return []metav1.OwnerReference{*metav1.NewControllerRef(graylog, GroupVersion.WithKind("Graylog"))}
}
