package v1alpha1

import (
	"k8s.io/apimachinery/pkg/runtime"

	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/webhook"
	"sigs.k8s.io/controller-runtime/pkg/webhook/admission"

	"graylogoperator/pkg/adapters/webhooks"
	"graylogoperator/pkg/core"
)

var _ webhook.Defaulter = &Graylog{}
var _ webhook.Validator = &Graylog{}
var _ runtime.Object = &Graylog{}
var _ runtime.Object = &GraylogList{}

// Default implements webhook.Defaulter.
func (graylog *Graylog) Default() { webhooks.DefaultGraylog(&graylog.Spec) }

// SetupWebhookWithManager registers the webhook with the provided manager.
func (graylog *Graylog) SetupWebhookWithManager(manager ctrl.Manager) error {
	return ctrl.NewWebhookManagedBy(manager).
		For(graylog).
		Complete()
}

// ValidateCreate implements webhook.Validator.
func (graylog *Graylog) ValidateCreate() (admission.Warnings, error) {
	if err := webhooks.ValidateGraylog(&graylog.Spec, nil); err != nil {
		return nil, err
	}

	return admissionWarnings(&graylog.Spec), nil
}

// ValidateUpdate implements webhook.Validator.
func (graylog *Graylog) ValidateUpdate(previous runtime.Object) (admission.Warnings, error) {
	var oldSpec *core.GraylogSpec
	if old, ok := previous.(*Graylog); ok && old != nil {
		oldSpec = &old.Spec
	}

	if err := webhooks.ValidateGraylog(&graylog.Spec, oldSpec); err != nil {
		return nil, err
	}

	return admissionWarnings(&graylog.Spec), nil
}

// ValidateDelete implements webhook.Validator.
func (graylog *Graylog) ValidateDelete() (admission.Warnings, error) {
	return nil, nil
}

func admissionWarnings(spec *core.GraylogSpec) admission.Warnings {
	var warnings admission.Warnings

	if spec.AdminPasswordSecretRef == nil {
		warnings = append(warnings, "adminPasswordSecretRef is not set; the unit stays Blocked until it is")
	}

	if spec.Relations.MongoDB == nil || spec.Relations.Elasticsearch == nil {
		warnings = append(warnings, "relations.mongodb and relations.elasticsearch are both required before Graylog is published")
	}

	return warnings
}

// DeepCopyInto copies the receiver into out.
func (graylog *Graylog) DeepCopyInto(out *Graylog) {
	if graylog == nil || out == nil {
		return
	}
	*out = *graylog
	graylog.ObjectMeta.DeepCopyInto(&out.ObjectMeta)

	out.Spec = deepCopySpec(&graylog.Spec)
	out.Status = deepCopyStatus(&graylog.Status)
}

// DeepCopy creates a new deep copy of the receiver.
func (graylog *Graylog) DeepCopy() *Graylog {
	if graylog == nil {
		return nil
	}

	out := new(Graylog)

	graylog.DeepCopyInto(out)
	return out
}

// DeepCopyObject returns a deep copy as a runtime.Object.
func (graylog *Graylog) DeepCopyObject() runtime.Object {
	if graylog == nil {
		return nil
	}

	return graylog.DeepCopy()
}

// DeepCopyInto copies the receiver into out.
func (graylogList *GraylogList) DeepCopyInto(out *GraylogList) {
	if graylogList == nil || out == nil {
		return
	}
	*out = *graylogList
	graylogList.ListMeta.DeepCopyInto(&out.ListMeta)

	if graylogList.Items != nil {
		out.Items = make([]Graylog, len(graylogList.Items))

		for index := range graylogList.Items {
			graylogList.Items[index].DeepCopyInto(&out.Items[index])
		}
	}
}

// DeepCopy creates a new deep copy of the list.
func (graylogList *GraylogList) DeepCopy() *GraylogList {
	if graylogList == nil {
		return nil
	}

	out := new(GraylogList)

	graylogList.DeepCopyInto(out)
	return out
}

// DeepCopyObject returns a deep copy of the list as a runtime.Object.
func (graylogList *GraylogList) DeepCopyObject() runtime.Object {
	if graylogList == nil {
		return nil
	}

	return graylogList.DeepCopy()
}

func deepCopySpec(source *core.GraylogSpec) core.GraylogSpec {
	if source == nil {
		return core.GraylogSpec{}
	}
	copiedSpec := *source

	if source.Port != nil {
		portCopy := *source.Port
		copiedSpec.Port = &portCopy
	}

	if source.AdminPasswordSecretRef != nil {
		refCopy := *source.AdminPasswordSecretRef
		copiedSpec.AdminPasswordSecretRef = &refCopy
	}

	copiedSpec.Relations = core.RelationRefs{
		Elasticsearch: copyObjectRef(source.Relations.Elasticsearch),
		MongoDB:       copyObjectRef(source.Relations.MongoDB),
		Peers:         copyObjectRef(source.Relations.Peers),
	}

	if source.Workload != nil {
		workloadCopy := *source.Workload

		if source.Workload.Selector != nil {
			workloadCopy.Selector = make(map[string]string, len(source.Workload.Selector))

			for labelKey, labelValue := range source.Workload.Selector {
				workloadCopy.Selector[labelKey] = labelValue
			}
		}

		copiedSpec.Workload = &workloadCopy
	}

	return copiedSpec
}

func copyObjectRef(source *core.ObjectRef) *core.ObjectRef {
	if source == nil {
		return nil
	}
	refCopy := *source
	return &refCopy
}

func deepCopyStatus(source *core.GraylogStatus) core.GraylogStatus {
	if source == nil {
		return core.GraylogStatus{}
	}
	copiedStatus := *source

	if source.Conditions != nil {
		copiedStatus.Conditions = append([]core.Condition(nil), source.Conditions...)
	}

	if source.Dependencies != nil {
		copiedStatus.Dependencies = append([]core.DependencyStatus(nil), source.Dependencies...)
	}

	return copiedStatus
}
