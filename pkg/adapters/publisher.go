package adapters

import (
	"context"
	"fmt"
	"strconv"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	"graylogoperator/pkg/artifact"
	"graylogoperator/pkg/core"
)

// ProviderConfigMapName is the ConfigMap consumers read to discover this Graylog.
func ProviderConfigMapName(instance string) string { return instance + "-provider" }

// KubePublisher applies artifacts as Kubernetes objects owned by the Graylog resource.
// Objects already annotated with the artifact hash are left untouched.
type KubePublisher struct {
	client   client.Client
	instance Instance
}

func NewKubePublisher(kubeClient client.Client, instance Instance) *KubePublisher {
	return &KubePublisher{client: kubeClient, instance: instance}
}

// Publish writes the environment Secret, the Deployment in Managed mode and the provider ConfigMap.
func (publisher *KubePublisher) Publish(ctx context.Context, a core.ConfigurationArtifact, hash string) (PublishResult, error) {
	var result PublishResult

	changed, err := publisher.applySecret(ctx, a, hash)
	if err != nil {
		return result, err
	}
	result.Changed = changed

	if core.WorkloadModeOf(&publisher.instance.Spec) == core.WorkloadManaged {
		changed, err = publisher.applyDeployment(ctx, a, hash)
		if err != nil {
			return result, err
		}
		result.Changed = result.Changed || changed
	}

	changed, err = publisher.applyProvider(ctx, a)
	if err != nil {
		return result, err
	}
	result.Changed = result.Changed || changed

	return result, nil
}

func (publisher *KubePublisher) applySecret(ctx context.Context, a core.ConfigurationArtifact, hash string) (bool, error) {
	desired := artifact.EnvSecret(a, publisher.instance.Namespace, hash)
	secret := &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Namespace: desired.Namespace, Name: desired.Name}}

	op, err := controllerutil.CreateOrUpdate(ctx, publisher.client, secret, func() error {
		if secret.Annotations[core.ArtifactHashAnnotation] == hash {
			return nil
		}
		secret.Labels = mergeStringMaps(secret.Labels, desired.Labels)
		secret.Annotations = mergeStringMaps(secret.Annotations, desired.Annotations)
		secret.OwnerReferences = publisher.instance.Owners
		secret.Type = desired.Type
		secret.Data = desired.Data
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("apply secret %s: %w", desired.Name, err)
	}

	return op != controllerutil.OperationResultNone, nil
}

func (publisher *KubePublisher) applyDeployment(ctx context.Context, a core.ConfigurationArtifact, hash string) (bool, error) {
	desired := artifact.Deployment(a, publisher.instance.Namespace, hash)
	deployment := &appsv1.Deployment{ObjectMeta: metav1.ObjectMeta{Namespace: desired.Namespace, Name: desired.Name}}

	op, err := controllerutil.CreateOrUpdate(ctx, publisher.client, deployment, func() error {
		if deployment.Annotations[core.ArtifactHashAnnotation] == hash {
			return nil
		}
		deployment.Labels = mergeStringMaps(deployment.Labels, desired.Labels)
		deployment.Annotations = mergeStringMaps(deployment.Annotations, desired.Annotations)
		deployment.OwnerReferences = publisher.instance.Owners
		if deployment.Spec.Selector == nil {
			deployment.Spec.Selector = desired.Spec.Selector
		}
		deployment.Spec.Replicas = desired.Spec.Replicas
		deployment.Spec.Template = desired.Spec.Template
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("apply deployment %s: %w", desired.Name, err)
	}

	return op != controllerutil.OperationResultNone, nil
}

func (publisher *KubePublisher) applyProvider(ctx context.Context, a core.ConfigurationArtifact) (bool, error) {
	configMap := &corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Namespace: publisher.instance.Namespace, Name: ProviderConfigMapName(publisher.instance.Name)}}

	op, err := controllerutil.CreateOrUpdate(ctx, publisher.client, configMap, func() error {
		configMap.Labels = mergeStringMaps(configMap.Labels, artifact.Labels(publisher.instance.Name))
		configMap.OwnerReferences = publisher.instance.Owners
		configMap.Data = map[string]string{
			core.ProviderFieldPort:          strconv.Itoa(int(a.Port)),
			core.ProviderFieldPublicAddress: a.IngressAddress,
			core.ProviderFieldReady:         "true",
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("apply provider configmap: %w", err)
	}

	return op != controllerutil.OperationResultNone, nil
}
