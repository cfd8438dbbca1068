package state

import (
	"bytes"
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"graylogoperator/pkg/core"
)

// SecretStore keeps state in an Opaque Secret next to the Graylog resource.
// The state carries the generated password secret, so it is never written to a ConfigMap.
// Writes retry on conflicts using Backoff.
type SecretStore struct {
	Client    client.Client
	Namespace string
	Name      string
	Labels    map[string]string
	Owners    []metav1.OwnerReference
	Backoff   core.BackoffStrategy
}

// SecretName is the state Secret name for a Graylog resource.
func SecretName(instance string) string { return instance + "-state" }

func (store *SecretStore) Load(ctx context.Context) (*State, error) {
	var secret corev1.Secret
	err := store.Client.Get(ctx, client.ObjectKey{Namespace: store.Namespace, Name: store.Name}, &secret)
	if apierrors.IsNotFound(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get state secret: %w", err)
	}
	s, err := Unmarshal(secret.Data[StateKey])
	if err != nil {
		return nil, fmt.Errorf("parse state secret %s/%s: %w", store.Namespace, store.Name, err)
	}
	return s, nil
}

func (store *SecretStore) Save(ctx context.Context, s *State) error {
	raw, err := s.Marshal()
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	_, err = store.Backoff.Retry(ctx, func(ctx context.Context) error {
		return store.write(ctx, raw)
	})
	return err
}

func (store *SecretStore) write(ctx context.Context, raw []byte) error {
	var secret corev1.Secret
	err := store.Client.Get(ctx, client.ObjectKey{Namespace: store.Namespace, Name: store.Name}, &secret)
	if apierrors.IsNotFound(err) {
		secret = corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{
				Namespace:       store.Namespace,
				Name:            store.Name,
				Labels:          store.Labels,
				OwnerReferences: store.Owners,
			},
			Type: corev1.SecretTypeOpaque,
			Data: map[string][]byte{StateKey: raw},
		}
		return store.Client.Create(ctx, &secret)
	}
	if err != nil {
		return err
	}
	if bytes.Equal(secret.Data[StateKey], raw) {
		return nil
	}
	if secret.Data == nil {
		secret.Data = map[string][]byte{}
	}
	secret.Data[StateKey] = raw
	return store.Client.Update(ctx, &secret)
}
