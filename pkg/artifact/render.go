package artifact

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"graylogoperator/pkg/core"
)

// EnvSecretName is the Secret carrying the artifact environment.
func EnvSecretName(instance string) string { return instance + "-env" }

// Labels selects every object rendered for instance.
func Labels(instance string) map[string]string {
	return map[string]string{
		core.ManagedLabel:  "true",
		core.InstanceLabel: instance,
	}
}

// EnvSecret renders the environment into a Secret.
// The environment carries the password secret and digest, so it never goes into a ConfigMap.
func EnvSecret(a core.ConfigurationArtifact, namespace, hash string) *corev1.Secret {
	data := make(map[string][]byte, len(a.Environment))
	for k, v := range a.Environment {
		data[k] = []byte(v)
	}
	return &corev1.Secret{
		ObjectMeta: objectMeta(EnvSecretName(a.Name), namespace, a.Name, hash),
		Type:       corev1.SecretTypeOpaque,
		Data:       data,
	}
}

// Deployment renders the single-replica Graylog workload. The container reads
// its environment from the Secret produced by EnvSecret.
func Deployment(a core.ConfigurationArtifact, namespace, hash string) *appsv1.Deployment {
	replicas := int32(1)
	selector := Labels(a.Name)

	container := corev1.Container{
		Name:  core.ContainerName,
		Image: a.Image.ImagePath,
		Ports: []corev1.ContainerPort{{
			Name:          "http",
			ContainerPort: a.Port,
			Protocol:      corev1.ProtocolTCP,
		}},
		EnvFrom: []corev1.EnvFromSource{{
			SecretRef: &corev1.SecretEnvSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: EnvSecretName(a.Name)},
			},
		}},
		LivenessProbe:  probe(a.LivenessProbe),
		ReadinessProbe: probe(a.ReadinessProbe),
	}

	podSpec := corev1.PodSpec{Containers: []corev1.Container{container}}
	if a.Image.PullSecret != "" {
		podSpec.ImagePullSecrets = []corev1.LocalObjectReference{{Name: a.Image.PullSecret}}
	}

	meta := objectMeta(a.Name, namespace, a.Name, hash)
	return &appsv1.Deployment{
		ObjectMeta: meta,
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: selector},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: Labels(a.Name),
					// A new hash rolls the pods.
					Annotations: map[string]string{core.ArtifactHashAnnotation: hash},
				},
				Spec: podSpec,
			},
		},
	}
}

// Service renders the ClusterIP Service whose address is the ingress address.
func Service(serviceName, instance, namespace string, port int32) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: objectMeta(serviceName, namespace, instance, ""),
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: Labels(instance),
			Ports: []corev1.ServicePort{{
				Name:       "http",
				Port:       port,
				TargetPort: intstr.FromInt32(port),
				Protocol:   corev1.ProtocolTCP,
			}},
		},
	}
}

func probe(p core.Probe) *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{
				Path: p.Path,
				Port: intstr.FromInt32(p.Port),
			},
		},
		InitialDelaySeconds: p.InitialDelaySeconds,
		TimeoutSeconds:      p.TimeoutSeconds,
	}
}

func objectMeta(name, namespace, instance, hash string) metav1.ObjectMeta {
	meta := metav1.ObjectMeta{
		Name:      name,
		Namespace: namespace,
		Labels:    Labels(instance),
	}
	if hash != "" {
		meta.Annotations = map[string]string{core.ArtifactHashAnnotation: hash}
	}
	return meta
}
