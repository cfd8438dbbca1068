package adapters

import (
	"context"
	"errors"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"graylogoperator/pkg/core"
)

func int32Ptr(v int32) *int32 { return &v }

func newInstance(spec core.GraylogSpec) Instance {
	core.DefaultSpec(&spec)
	return Instance{Namespace: "logging", Name: "graylog", Spec: spec}
}

func TestAdminPassword(t *testing.T) {
	ctx := context.Background()
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Namespace: "logging", Name: "graylog-admin"},
		Data:       map[string][]byte{"admin-password": []byte("admin")},
	}
	kube := fake.NewClientBuilder().WithObjects(secret).Build()

	cases := []struct {
		name string
		ref  *core.SecretKeyRef
		want string
	}{
		{"unset", nil, ""},
		{"default key", &core.SecretKeyRef{Name: "graylog-admin"}, "admin"},
		{"missing key", &core.SecretKeyRef{Name: "graylog-admin", Key: "other"}, ""},
		{"missing secret", &core.SecretKeyRef{Name: "absent"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			unit := NewControllerRuntimeClient(kube, newInstance(core.GraylogSpec{AdminPasswordSecretRef: tc.ref}))
			got, err := unit.AdminPassword(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRelationData(t *testing.T) {
	ctx := context.Background()
	relation := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Namespace: "logging", Name: "es"},
		Data:       map[string]string{core.FieldIngressAddress: "10.0.0.1", core.FieldPort: "9200"},
	}
	kube := fake.NewClientBuilder().WithObjects(relation).Build()
	unit := NewControllerRuntimeClient(kube, newInstance(core.GraylogSpec{Relations: core.RelationRefs{
		Elasticsearch: &core.ObjectRef{Name: "es"},
		MongoDB:       &core.ObjectRef{Name: "absent"},
	}}))

	fields, present, err := unit.RelationData(ctx, core.DependencySearchIndex)
	if err != nil || !present {
		t.Fatalf("expected elasticsearch relation, got present=%v err=%v", present, err)
	}
	if fields[core.FieldPort] != "9200" {
		t.Fatalf("unexpected fields %v", fields)
	}

	if _, present, err := unit.RelationData(ctx, core.DependencyDatastore); err != nil || present {
		t.Fatalf("expected missing mongodb configmap to read as absent, got present=%v err=%v", present, err)
	}
	if _, present, err := unit.RelationData(ctx, core.DependencyPeers); err != nil || present {
		t.Fatalf("expected unreferenced peers relation to read as absent, got present=%v err=%v", present, err)
	}
}

func TestFetchImage(t *testing.T) {
	ctx := context.Background()
	pull := &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Namespace: "logging", Name: "regcred"}}
	kube := fake.NewClientBuilder().WithObjects(pull).Build()

	unit := NewControllerRuntimeClient(kube, newInstance(core.GraylogSpec{Image: core.ImageSpec{Name: "graylog/graylog:4.0", PullSecret: "regcred"}}))
	image, err := unit.FetchImage(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if image.ImagePath != "graylog/graylog:4.0" || image.PullSecret != "regcred" {
		t.Fatalf("unexpected image %+v", image)
	}

	unit = NewControllerRuntimeClient(kube, newInstance(core.GraylogSpec{Image: core.ImageSpec{Name: "graylog/graylog:4.0", PullSecret: "absent"}}))
	if _, err := unit.FetchImage(ctx); !errors.Is(err, core.ErrImageUnavailable) {
		t.Fatalf("expected ErrImageUnavailable for missing pull secret, got %v", err)
	}

	unit = NewControllerRuntimeClient(kube, newInstance(core.GraylogSpec{}))
	if _, err := unit.FetchImage(ctx); !errors.Is(err, core.ErrImageUnavailable) {
		t.Fatalf("expected ErrImageUnavailable for empty image, got %v", err)
	}
}

func TestIngressAddressManagedEnsuresService(t *testing.T) {
	ctx := context.Background()
	kube := fake.NewClientBuilder().Build()
	unit := NewControllerRuntimeClient(kube, newInstance(core.GraylogSpec{Port: int32Ptr(9000)}))

	if _, err := unit.IngressAddress(ctx); !errors.Is(err, core.ErrIngressUnavailable) {
		t.Fatalf("expected ErrIngressUnavailable before a cluster IP is assigned, got %v", err)
	}

	var service corev1.Service
	if err := kube.Get(ctx, types.NamespacedName{Namespace: "logging", Name: "graylog"}, &service); err != nil {
		t.Fatalf("expected service to be created: %v", err)
	}
	if service.Spec.Ports[0].Port != 9000 {
		t.Fatalf("unexpected service port %d", service.Spec.Ports[0].Port)
	}

	service.Spec.ClusterIP = "10.96.0.15"
	if err := kube.Update(ctx, &service); err != nil {
		t.Fatalf("update service: %v", err)
	}

	address, err := unit.IngressAddress(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if address != "10.96.0.15" {
		t.Fatalf("expected cluster IP, got %s", address)
	}
}

func TestIngressAddressExternalDoesNotCreateService(t *testing.T) {
	ctx := context.Background()
	kube := fake.NewClientBuilder().Build()
	unit := NewControllerRuntimeClient(kube, newInstance(core.GraylogSpec{
		ServiceName: "external-graylog",
		Workload:    &core.WorkloadSpec{Mode: core.WorkloadExternal, Selector: map[string]string{"app": "graylog"}},
	}))

	if _, err := unit.IngressAddress(ctx); !errors.Is(err, core.ErrIngressUnavailable) {
		t.Fatalf("expected ErrIngressUnavailable, got %v", err)
	}

	var services corev1.ServiceList
	if err := kube.List(ctx, &services, client.InNamespace("logging")); err != nil {
		t.Fatalf("list services: %v", err)
	}
	if len(services.Items) != 0 {
		t.Fatalf("external mode must not create services, found %d", len(services.Items))
	}
}

func TestRuntimeReady(t *testing.T) {
	ctx := context.Background()
	external := core.GraylogSpec{Workload: &core.WorkloadSpec{Mode: core.WorkloadExternal, Selector: map[string]string{"app": "graylog"}}}

	managed := NewControllerRuntimeClient(fake.NewClientBuilder().Build(), newInstance(core.GraylogSpec{}))
	if ready, err := managed.RuntimeReady(ctx); err != nil || !ready {
		t.Fatalf("managed mode should always be ready, got %v %v", ready, err)
	}

	pending := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Namespace: "logging", Name: "graylog-0", Labels: map[string]string{"app": "graylog"}},
		Status: corev1.PodStatus{ContainerStatuses: []corev1.ContainerStatus{{
			Name:  core.ContainerName,
			State: corev1.ContainerState{Waiting: &corev1.ContainerStateWaiting{Reason: "ContainerCreating"}},
		}}},
	}
	unit := NewControllerRuntimeClient(fake.NewClientBuilder().WithObjects(pending).Build(), newInstance(external))
	if ready, err := unit.RuntimeReady(ctx); err != nil || ready {
		t.Fatalf("waiting container should not be ready, got %v %v", ready, err)
	}

	running := pending.DeepCopy()
	running.Status.ContainerStatuses[0].State = corev1.ContainerState{Running: &corev1.ContainerStateRunning{}}
	unit = NewControllerRuntimeClient(fake.NewClientBuilder().WithObjects(running).Build(), newInstance(external))
	if ready, err := unit.RuntimeReady(ctx); err != nil || !ready {
		t.Fatalf("running container should be ready, got %v %v", ready, err)
	}
}
