package graylog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	"graylogoperator/pkg/adapters"
	"graylogoperator/pkg/adapters/events"
	"graylogoperator/pkg/agents/status"
	graylogv1alpha1 "graylogoperator/pkg/api/v1alpha1"
	"graylogoperator/pkg/core"
	observabilitymetrics "graylogoperator/pkg/observability/metrics"
	"graylogoperator/pkg/state"
)

const (
	// DefaultResync is how often a settled Graylog is reconciled as an update-status trigger.
	DefaultResync = 5 * time.Minute

	deferredRequeue = 10 * time.Second
)

// Options tune the controller. Leadership defaults to the manager's leader election.
type Options struct {
	SecretLength int
	Resync       time.Duration
	Leadership   adapters.Leadership
	Now          func() time.Time
}

// GraylogController reconciles Graylog resources with a controller-runtime manager.
// Every replica runs passes; only the leader writes objects, state or status.
type GraylogController struct {
	client.Client
	logger  logr.Logger
	events  *events.Recorder
	options Options
}

var _ reconcile.Reconciler = &GraylogController{}

// NewController constructs a GraylogController wired with the manager's client.
func NewController(manager ctrl.Manager, options Options) *GraylogController {
	if options.Leadership == nil {
		options.Leadership = adapters.NewElectedLeadership(manager.Elected())
	}

	return newController(manager.GetClient(), manager.GetEventRecorderFor("graylog-controller"), options)
}

func newController(kubeClient client.Client, recorder record.EventRecorder, options Options) *GraylogController {
	if options.Resync <= 0 {
		options.Resync = DefaultResync
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &GraylogController{
		Client:  kubeClient,
		logger:  ctrl.Log.WithName("controllers").WithName("Graylog"),
		events:  events.NewRecorder(recorder),
		options: options,
	}
}

// Reconcile loads the unit's state, derives the triggers that happened since
// the last pass, drains them through the unit and reports the outcome.
func (controller *GraylogController) Reconcile(requestContext context.Context, reconcileRequest ctrl.Request) (ctrl.Result, error) {
	requestLogger := controller.logger.WithValues("graylog", reconcileRequest.NamespacedName)

	var graylog graylogv1alpha1.Graylog

	if err := controller.Get(requestContext, reconcileRequest.NamespacedName, &graylog); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}

		return ctrl.Result{}, err
	}

	leader := controller.isLeader()

	if !graylog.ObjectMeta.DeletionTimestamp.IsZero() {
		return controller.finalize(requestContext, &graylog, leader, requestLogger)
	}

	if leader && !controllerutil.ContainsFinalizer(&graylog, core.Finalizer) {
		controllerutil.AddFinalizer(&graylog, core.Finalizer)

		if err := controller.Update(requestContext, &graylog); err != nil {
			return ctrl.Result{}, err
		}
	}

	instance := adapters.Instance{
		Namespace: graylog.Namespace,
		Name:      graylog.Name,
		Spec:      graylog.Spec,
		Owners:    graylog.OwnerReferences(),
	}
	kubeClient := adapters.NewControllerRuntimeClient(controller.Client, instance)
	store := controller.stateStore(&graylog)

	unitState, err := store.Load(requestContext)
	if err != nil {
		return ctrl.Result{}, err
	}

	triggers, err := deriveTriggers(requestContext, &graylog, kubeClient, unitState)
	if err != nil {
		return controller.fail(requestContext, &graylog, leader, requestLogger, nil, err)
	}

	previous := graylog.UnitStatus()
	unit := NewUnit(UnitConfig{
		Name:         graylog.Name,
		State:        unitState,
		Status:       previous,
		Leadership:   controller.options.Leadership,
		Config:       kubeClient,
		Runtime:      kubeClient,
		Images:       kubeClient,
		Ingress:      kubeClient,
		Publisher:    adapters.NewKubePublisher(controller.Client, instance),
		SecretLength: controller.options.SecretLength,
		Log:          requestLogger,
	})
	unit.Enqueue(triggers...)

	start := time.Now()
	result, drainErr := unit.Drain(requestContext)
	if _, err := unit.Persist(requestContext, store); err != nil {
		drainErr = errors.Join(drainErr, err)
	}
	observabilitymetrics.RecordReconcile(time.Since(start), drainErr)

	if drainErr != nil {
		return controller.fail(requestContext, &graylog, leader, requestLogger, unit, drainErr)
	}

	if !leader {
		requestLogger.V(1).Info("follower pass complete", "status", result.Status.String())
		return ctrl.Result{RequeueAfter: controller.options.Resync}, nil
	}

	observabilitymetrics.RecordDependencies(reconcileRequest.NamespacedName.String(), unit.Registry().Statuses())
	controller.emitEvents(&graylog, previous, result)

	statusPatch := client.MergeFrom(graylog.DeepCopy())

	graylog.ApplyObservation(status.Observation{
		Unit:         result.Status,
		Dependencies: unit.Registry().Statuses(),
		ArtifactHash: result.Hash,
		Generation:   graylog.Generation,
	}, controller.options.Now())

	if err := controller.Status().Patch(requestContext, &graylog, statusPatch); err != nil {
		if apierrors.IsConflict(err) {
			return ctrl.Result{Requeue: true}, nil
		}

		return ctrl.Result{}, fmt.Errorf("update status: %w", err)
	}

	if result.Deferred {
		return ctrl.Result{RequeueAfter: deferredRequeue}, nil
	}

	return ctrl.Result{RequeueAfter: controller.options.Resync}, nil
}

// deriveTriggers compares live relation data and runtime readiness with what
// the last pass recorded. Relation triggers come first, in dependency order,
// followed by exactly one of ConfigChanged, RuntimeReady or UpdateStatus.
func deriveTriggers(requestContext context.Context, graylog *graylogv1alpha1.Graylog, source adapters.UnitClient, unitState *state.State) ([]Trigger, error) {
	var triggers []Trigger

	for _, kind := range core.AllDependencies {
		fields, present, err := source.RelationData(requestContext, kind)
		if err != nil {
			return nil, err
		}

		digest, recorded := unitState.RelationDigests[kind]

		switch {
		case present && (!recorded || core.HashData(fields) != digest):
			triggers = append(triggers, RelationChanged(kind, fields))
		case !present && (recorded || unitState.Dependencies[kind].Satisfied()):
			triggers = append(triggers, RelationBroken(kind))
		}
	}

	if graylog.ConfigChanged() {
		return append(triggers, Trigger{Kind: TriggerConfigChanged}), nil
	}

	ready, err := source.RuntimeReady(requestContext)
	if err != nil {
		return nil, err
	}
	if ready && !unitState.RuntimeReady {
		return append(triggers, Trigger{Kind: TriggerRuntimeReady}), nil
	}

	return append(triggers, Trigger{Kind: TriggerUpdateStatus}), nil
}

// fail reports a failed reconcile. Transient failures requeue quietly; others
// are surfaced as a warning event and a Degraded condition.
func (controller *GraylogController) fail(requestContext context.Context, graylog *graylogv1alpha1.Graylog, leader bool, requestLogger logr.Logger, unit *Unit, reconcileErr error) (ctrl.Result, error) {
	if core.IsTransient(reconcileErr) {
		requestLogger.Info("transient failure, requeueing", "reason", reconcileErr.Error())
		return ctrl.Result{Requeue: true}, nil
	}

	requestLogger.Error(reconcileErr, "reconciliation failed", "category", core.ClassifyError(reconcileErr))

	if !leader {
		return ctrl.Result{}, reconcileErr
	}

	controller.events.Error(graylog, reconcileErr)

	observation := status.Observation{
		Unit:       graylog.UnitStatus(),
		Generation: graylog.Status.ObservedGeneration,
		Err:        reconcileErr,
	}
	if unit != nil {
		observation.Dependencies = unit.Registry().Statuses()
	}

	statusPatch := client.MergeFrom(graylog.DeepCopy())
	graylog.ApplyObservation(observation, controller.options.Now())

	if err := controller.Status().Patch(requestContext, graylog, statusPatch); err != nil && !apierrors.IsConflict(err) {
		requestLogger.Error(err, "failed to record degraded status")
	}

	return ctrl.Result{}, reconcileErr
}

// finalize runs the stop trigger, removes persisted state and releases the finalizer.
func (controller *GraylogController) finalize(requestContext context.Context, graylog *graylogv1alpha1.Graylog, leader bool, requestLogger logr.Logger) (ctrl.Result, error) {
	if !leader || !controllerutil.ContainsFinalizer(graylog, core.Finalizer) {
		return ctrl.Result{}, nil
	}

	previous := graylog.UnitStatus()
	unit := NewUnit(UnitConfig{
		Name:       graylog.Name,
		State:      state.New(),
		Status:     previous,
		Leadership: controller.options.Leadership,
		Log:        requestLogger,
	})
	unit.Enqueue(Trigger{Kind: TriggerStop})

	result, err := unit.Drain(requestContext)
	if err != nil {
		return ctrl.Result{}, err
	}

	controller.events.StatusChanged(graylog, previous, result.Status)

	statusPatch := client.MergeFrom(graylog.DeepCopy())
	graylog.ApplyObservation(status.Observation{Unit: result.Status, Generation: graylog.Generation}, controller.options.Now())

	if err := controller.Status().Patch(requestContext, graylog, statusPatch); err != nil && !apierrors.IsNotFound(err) {
		if apierrors.IsConflict(err) {
			return ctrl.Result{Requeue: true}, nil
		}

		return ctrl.Result{}, fmt.Errorf("update status: %w", err)
	}

	stateSecret := &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Namespace: graylog.Namespace, Name: state.SecretName(graylog.Name)}}
	if err := controller.Delete(requestContext, stateSecret); err != nil && !apierrors.IsNotFound(err) {
		return ctrl.Result{}, fmt.Errorf("delete state: %w", err)
	}

	observabilitymetrics.ForgetInstance(types.NamespacedName{Namespace: graylog.Namespace, Name: graylog.Name}.String())

	controllerutil.RemoveFinalizer(graylog, core.Finalizer)

	if err := controller.Update(requestContext, graylog); err != nil {
		return ctrl.Result{}, err
	}

	requestLogger.Info("released graylog")
	return ctrl.Result{}, nil
}

func (controller *GraylogController) stateStore(graylog *graylogv1alpha1.Graylog) *state.SecretStore {
	return &state.SecretStore{
		Client:    controller.Client,
		Namespace: graylog.Namespace,
		Name:      state.SecretName(graylog.Name),
		Labels:    map[string]string{core.ManagedLabel: "true", core.InstanceLabel: graylog.Name},
		Owners:    graylog.OwnerReferences(),
		Backoff:   core.DefaultBackoff(),
	}
}

func (controller *GraylogController) emitEvents(graylog *graylogv1alpha1.Graylog, previous core.UnitStatus, result Result) {
	for _, kind := range result.Broken {
		controller.events.RelationBroken(graylog, kind)
	}
	if result.Published {
		controller.events.ArtifactPublished(graylog, result.PublishedHash)
	}
	controller.events.StatusChanged(graylog, previous, result.Status)
}

func (controller *GraylogController) isLeader() bool {
	return controller.options.Leadership != nil && controller.options.Leadership.IsLeader()
}

// SetupWithManager registers the controller with the provided manager.
// Followers also run passes, so the controller does not wait for leader election.
func SetupWithManager(manager ctrl.Manager, options Options) error {
	reconciler := NewController(manager, options)
	needLeaderElection := false

	return ctrl.NewControllerManagedBy(manager).
		WithOptions(controller.Options{MaxConcurrentReconciles: 1, NeedLeaderElection: &needLeaderElection}).
		For(&graylogv1alpha1.Graylog{}).
		Owns(&appsv1.Deployment{}).
		Owns(&corev1.Service{}).
		Watches(&corev1.ConfigMap{}, handler.EnqueueRequestsFromMapFunc(reconciler.graylogsForConfigMap)).
		Watches(&corev1.Secret{}, handler.EnqueueRequestsFromMapFunc(reconciler.graylogsForSecret)).
		Watches(&corev1.Pod{}, handler.EnqueueRequestsFromMapFunc(reconciler.graylogsForPod)).
		Complete(reconciler)
}

func (controller *GraylogController) graylogsForConfigMap(requestContext context.Context, object client.Object) []reconcile.Request {
	return controller.graylogsMatching(requestContext, object.GetNamespace(), func(graylog *graylogv1alpha1.Graylog) bool {
		for _, kind := range core.AllDependencies {
			if ref := graylog.Spec.Relations.Ref(kind); ref != nil && ref.Name == object.GetName() {
				return true
			}
		}
		return false
	})
}

func (controller *GraylogController) graylogsForSecret(requestContext context.Context, object client.Object) []reconcile.Request {
	return controller.graylogsMatching(requestContext, object.GetNamespace(), func(graylog *graylogv1alpha1.Graylog) bool {
		if ref := graylog.Spec.AdminPasswordSecretRef; ref != nil && ref.Name == object.GetName() {
			return true
		}
		return graylog.Spec.Image.PullSecret != "" && graylog.Spec.Image.PullSecret == object.GetName()
	})
}

func (controller *GraylogController) graylogsForPod(requestContext context.Context, object client.Object) []reconcile.Request {
	podLabels := labels.Set(object.GetLabels())

	return controller.graylogsMatching(requestContext, object.GetNamespace(), func(graylog *graylogv1alpha1.Graylog) bool {
		if core.WorkloadModeOf(&graylog.Spec) != core.WorkloadExternal || len(graylog.Spec.Workload.Selector) == 0 {
			return false
		}
		return labels.SelectorFromSet(graylog.Spec.Workload.Selector).Matches(podLabels)
	})
}

func (controller *GraylogController) graylogsMatching(requestContext context.Context, namespace string, match func(*graylogv1alpha1.Graylog) bool) []reconcile.Request {
	var graylogs graylogv1alpha1.GraylogList

	if err := controller.List(requestContext, &graylogs, client.InNamespace(namespace)); err != nil {
		controller.logger.Error(err, "failed to list graylogs for watch", "namespace", namespace)
		return nil
	}

	var requests []reconcile.Request
	for index := range graylogs.Items {
		if match(&graylogs.Items[index]) {
			requests = append(requests, reconcile.Request{NamespacedName: types.NamespacedName{Namespace: namespace, Name: graylogs.Items[index].Name}})
		}
	}

	return requests
}
