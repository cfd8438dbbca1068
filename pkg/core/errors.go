package core

import (
	"context"
	"errors"
	"fmt"
	"net"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

var (
	// ErrNotLeader is returned when a follower attempts a leader-only mutation.
	ErrNotLeader = errors.New("unit is not the leader")
	// ErrIncompleteRelationData is returned when relation data lacks a required field.
	ErrIncompleteRelationData = errors.New("incomplete relation data")
	// ErrIngressUnavailable is returned while the ingress address cannot be resolved yet.
	ErrIngressUnavailable = errors.New("ingress address unavailable")
	// ErrImageUnavailable is returned when the image resource cannot be fetched.
	ErrImageUnavailable = errors.New("image resource unavailable")
)

// IncompleteDataError names the fields missing or malformed in a rejected relation update.
type IncompleteDataError struct {
	Kind    DependencyKind
	Missing []string
	Invalid []string
}

func (e *IncompleteDataError) Error() string {
	if len(e.Invalid) == 0 {
		return fmt.Sprintf("%s relation data missing %v", e.Kind, e.Missing)
	}
	return fmt.Sprintf("%s relation data missing %v, invalid %v", e.Kind, e.Missing, e.Invalid)
}

func (e *IncompleteDataError) Unwrap() error { return ErrIncompleteRelationData }

// ErrorCategory describes the class of an error encountered while reconciling.
type ErrorCategory string

const (
	// ErrorCategoryNone indicates no error.
	ErrorCategoryNone ErrorCategory = ""
	// ErrorCategoryRBAC indicates insufficient permissions (Forbidden/Unauthorized).
	ErrorCategoryRBAC ErrorCategory = "rbac"
	// ErrorCategoryTransient indicates a retryable failure.
	ErrorCategoryTransient ErrorCategory = "transient"
	// ErrorCategoryPermanent indicates a non-retryable failure unrelated to RBAC.
	ErrorCategoryPermanent ErrorCategory = "permanent"
)

// ClassifyError inspects an error chain and returns its category.
func ClassifyError(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryNone
	}
	for current := err; current != nil; current = errors.Unwrap(current) {
		switch {
		case apierrors.IsForbidden(current) || apierrors.IsUnauthorized(current):
			return ErrorCategoryRBAC
		case apierrors.IsConflict(current), apierrors.IsTooManyRequests(current),
			apierrors.IsTimeout(current), apierrors.IsServerTimeout(current),
			apierrors.IsServiceUnavailable(current):
			return ErrorCategoryTransient
		}
		if errors.Is(current, ErrIngressUnavailable) {
			return ErrorCategoryTransient
		}
		if errors.Is(current, context.DeadlineExceeded) || errors.Is(current, context.Canceled) {
			return ErrorCategoryTransient
		}
		if ne, ok := current.(net.Error); ok && ne.Timeout() {
			return ErrorCategoryTransient
		}
	}
	return ErrorCategoryPermanent
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool { return ClassifyError(err) == ErrorCategoryTransient }
