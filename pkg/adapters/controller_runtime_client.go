package adapters

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	"graylogoperator/pkg/artifact"
	"graylogoperator/pkg/core"
)

// UnitClient is the Kubernetes view of one Graylog resource.
type UnitClient interface {
	ConfigSource
	RelationSource
	ImageSource
	IngressResolver
	RuntimeProbe
}

// Instance identifies a Graylog resource and the objects it owns.
type Instance struct {
	Namespace string
	Name      string
	Spec      core.GraylogSpec
	Owners    []metav1.OwnerReference
}

type controllerRuntimeClient struct {
	client   client.Client
	instance Instance
}

// NewControllerRuntimeClient returns a UnitClient backed by a controller-runtime client.Client.
func NewControllerRuntimeClient(kubeClient client.Client, instance Instance) UnitClient {
	return &controllerRuntimeClient{client: kubeClient, instance: instance}
}

// AdminPassword reads the referenced Secret key. A missing reference, Secret or key reads as unconfigured.
func (clientAdapter *controllerRuntimeClient) AdminPassword(requestContext context.Context) (string, error) {
	ref := clientAdapter.instance.Spec.AdminPasswordSecretRef
	if ref == nil || ref.Name == "" {
		return "", nil
	}

	var secret corev1.Secret

	if err := clientAdapter.client.Get(requestContext, types.NamespacedName{Namespace: clientAdapter.instance.Namespace, Name: ref.Name}, &secret); err != nil {
		if apierrors.IsNotFound(err) {
			return "", nil
		}

		return "", fmt.Errorf("get admin password secret: %w", err)
	}

	key := ref.Key
	if key == "" {
		key = core.DefaultAdminPasswordKey
	}

	return string(secret.Data[key]), nil
}

func (clientAdapter *controllerRuntimeClient) Port() int32 {
	return core.PortOf(&clientAdapter.instance.Spec)
}

// RelationData returns the data of the ConfigMap referenced for kind.
func (clientAdapter *controllerRuntimeClient) RelationData(requestContext context.Context, kind core.DependencyKind) (map[string]string, bool, error) {
	ref := clientAdapter.instance.Spec.Relations.Ref(kind)
	if ref == nil || ref.Name == "" {
		return nil, false, nil
	}

	var configMap corev1.ConfigMap

	if err := clientAdapter.client.Get(requestContext, types.NamespacedName{Namespace: clientAdapter.instance.Namespace, Name: ref.Name}, &configMap); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("get %s relation: %w", kind, err)
	}

	return copyStringMap(configMap.Data), true, nil
}

// FetchImage resolves the image resource. The pull secret, when named, must exist.
func (clientAdapter *controllerRuntimeClient) FetchImage(requestContext context.Context) (core.ImageDetails, error) {
	image := clientAdapter.instance.Spec.Image
	if image.Name == "" {
		return core.ImageDetails{}, fmt.Errorf("image name not set: %w", core.ErrImageUnavailable)
	}

	if image.PullSecret != "" {
		var secret corev1.Secret

		if err := clientAdapter.client.Get(requestContext, types.NamespacedName{Namespace: clientAdapter.instance.Namespace, Name: image.PullSecret}, &secret); err != nil {
			if apierrors.IsNotFound(err) {
				return core.ImageDetails{}, fmt.Errorf("pull secret %s not found: %w", image.PullSecret, core.ErrImageUnavailable)
			}

			return core.ImageDetails{}, fmt.Errorf("get pull secret: %w", err)
		}
	}

	return core.ImageDetails{ImagePath: image.Name, PullSecret: image.PullSecret}, nil
}

// IngressAddress returns the ClusterIP of the configured Service. In Managed
// mode the Service is created or updated first.
func (clientAdapter *controllerRuntimeClient) IngressAddress(requestContext context.Context) (string, error) {
	serviceName := core.ServiceNameFor(clientAdapter.instance.Name, &clientAdapter.instance.Spec)

	if core.WorkloadModeOf(&clientAdapter.instance.Spec) == core.WorkloadManaged {
		if err := clientAdapter.ensureService(requestContext, serviceName); err != nil {
			return "", err
		}
	}

	var service corev1.Service

	if err := clientAdapter.client.Get(requestContext, types.NamespacedName{Namespace: clientAdapter.instance.Namespace, Name: serviceName}, &service); err != nil {
		if apierrors.IsNotFound(err) {
			return "", fmt.Errorf("service %s not found: %w", serviceName, core.ErrIngressUnavailable)
		}

		return "", err
	}

	if service.Spec.ClusterIP == "" || service.Spec.ClusterIP == corev1.ClusterIPNone {
		return "", fmt.Errorf("service %s has no cluster IP: %w", serviceName, core.ErrIngressUnavailable)
	}

	return service.Spec.ClusterIP, nil
}

func (clientAdapter *controllerRuntimeClient) ensureService(requestContext context.Context, serviceName string) error {
	desired := artifact.Service(serviceName, clientAdapter.instance.Name, clientAdapter.instance.Namespace, clientAdapter.Port())

	service := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Namespace: desired.Namespace, Name: desired.Name}}

	_, err := controllerutil.CreateOrUpdate(requestContext, clientAdapter.client, service, func() error {
		service.Labels = mergeStringMaps(service.Labels, desired.Labels)
		service.OwnerReferences = clientAdapter.instance.Owners
		service.Spec.Type = desired.Spec.Type
		service.Spec.Selector = desired.Spec.Selector
		service.Spec.Ports = desired.Spec.Ports
		return nil
	})
	if err != nil {
		return fmt.Errorf("ensure service %s: %w", serviceName, err)
	}

	return nil
}

// RuntimeReady is always true in Managed mode. In External mode a pod matching
// the selector must have a running graylog container.
func (clientAdapter *controllerRuntimeClient) RuntimeReady(requestContext context.Context) (bool, error) {
	spec := &clientAdapter.instance.Spec
	if core.WorkloadModeOf(spec) == core.WorkloadManaged {
		return true, nil
	}

	var pods corev1.PodList

	if err := clientAdapter.client.List(requestContext, &pods, client.InNamespace(clientAdapter.instance.Namespace), client.MatchingLabels(spec.Workload.Selector)); err != nil {
		return false, fmt.Errorf("list workload pods: %w", err)
	}

	for _, pod := range pods.Items {
		if pod.DeletionTimestamp != nil {
			continue
		}

		for _, containerStatus := range pod.Status.ContainerStatuses {
			if containerStatus.Name == core.ContainerName && containerStatus.State.Running != nil {
				return true, nil
			}
		}
	}

	return false, nil
}

// copyStringMap duplicates a map so callers can mutate the returned value safely.
func copyStringMap(source map[string]string) map[string]string {
	if len(source) == 0 {
		return nil
	}

	copied := make(map[string]string, len(source))

	for key, value := range source {
		copied[key] = value
	}

	return copied
}

// mergeStringMaps overlays desired onto existing, keeping unrelated keys.
func mergeStringMaps(existing, desired map[string]string) map[string]string {
	if existing == nil {
		existing = make(map[string]string, len(desired))
	}

	for key, value := range desired {
		existing[key] = value
	}

	return existing
}
