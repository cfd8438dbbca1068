package v1alpha1

import (
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"graylogoperator/pkg/core"
)

func int32Ptr(v int32) *int32 { return &v }

func sampleGraylog() *Graylog {
	return &Graylog{
		ObjectMeta: metav1.ObjectMeta{Namespace: "logging", Name: "graylog", UID: "uid-1"},
		Spec: GraylogSpec{
			Port:                   int32Ptr(9000),
			AdminPasswordSecretRef: &core.SecretKeyRef{Name: "graylog-admin", Key: "admin-password"},
			Image:                  core.ImageSpec{Name: "graylog/graylog:4.0"},
			Relations: core.RelationRefs{
				Elasticsearch: &core.ObjectRef{Name: "es"},
				MongoDB:       &core.ObjectRef{Name: "mongo"},
			},
			Workload: &core.WorkloadSpec{Mode: core.WorkloadExternal, Selector: map[string]string{"app": "graylog"}},
		},
		Status: GraylogStatus{
			Conditions:   []core.Condition{{Type: core.CondReady, Status: "True"}},
			Dependencies: []core.DependencyStatus{{Kind: core.DependencyDatastore, Satisfied: true}},
		},
	}
}

func TestDeepCopyIsIndependent(t *testing.T) {
	original := sampleGraylog()
	copied := original.DeepCopy()

	*copied.Spec.Port = 9100
	copied.Spec.AdminPasswordSecretRef.Name = "other"
	copied.Spec.Relations.MongoDB.Name = "other"
	copied.Spec.Workload.Selector["app"] = "other"
	copied.Status.Conditions[0].Status = "False"
	copied.Status.Dependencies[0].Satisfied = false

	if *original.Spec.Port != 9000 || original.Spec.AdminPasswordSecretRef.Name != "graylog-admin" {
		t.Fatalf("spec pointers shared with copy: %+v", original.Spec)
	}
	if original.Spec.Relations.MongoDB.Name != "mongo" || original.Spec.Workload.Selector["app"] != "graylog" {
		t.Fatalf("nested spec shared with copy: %+v", original.Spec)
	}
	if original.Status.Conditions[0].Status != "True" || !original.Status.Dependencies[0].Satisfied {
		t.Fatalf("status slices shared with copy: %+v", original.Status)
	}

	list := &GraylogList{Items: []Graylog{*original}}
	listCopy := list.DeepCopy()
	listCopy.Items[0].Spec.Relations.MongoDB.Name = "changed"
	if list.Items[0].Spec.Relations.MongoDB.Name != "mongo" {
		t.Fatalf("list items shared with copy")
	}
}

func TestValidateAndDefault(t *testing.T) {
	graylog := &Graylog{}
	graylog.Default()
	if graylog.Spec.Port == nil || graylog.Spec.Workload == nil {
		t.Fatalf("defaults not applied: %+v", graylog.Spec)
	}

	warnings, err := graylog.ValidateCreate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected admin password and relation warnings, got %v", warnings)
	}

	warnings, err = sampleGraylog().ValidateUpdate(sampleGraylog())
	if err != nil || len(warnings) != 0 {
		t.Fatalf("expected clean update, got %v %v", warnings, err)
	}

	bad := sampleGraylog()
	bad.Spec.Port = int32Ptr(0)
	if _, err := bad.ValidateCreate(); err == nil {
		t.Fatalf("expected invalid port to be rejected")
	}
}

func TestOwnerReferences(t *testing.T) {
	refs := sampleGraylog().OwnerReferences()
	if len(refs) != 1 || refs[0].Kind != "Graylog" || refs[0].Controller == nil || !*refs[0].Controller {
		t.Fatalf("unexpected owner references %+v", refs)
	}
	if refs := (&Graylog{}).OwnerReferences(); refs != nil {
		t.Fatalf("objects without UID have no owner reference")
	}
}
