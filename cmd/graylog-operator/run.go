package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"
	crwebhook "sigs.k8s.io/controller-runtime/pkg/webhook"

	graylogv1alpha1 "graylogoperator/pkg/api/v1alpha1"
	"graylogoperator/pkg/controllers/graylog"
	"graylogoperator/pkg/core"
	observabilitymetrics "graylogoperator/pkg/observability/metrics"
)

var scheme = runtime.NewScheme()

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(graylogv1alpha1.AddToScheme(scheme))
}

type runOptions struct {
	metricsAddr          string
	probeAddr            string
	enableLeaderElection bool
	webhookPort          int
	enableWebhooks       bool
	secretLength         int
	resync               time.Duration
}

func newRunCommand() *cobra.Command {
	opts := runOptions{enableWebhooks: true}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the Graylog controller manager",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("enable-webhooks") {
				opts.enableWebhooks = enableWebhooksFromEnv(os.Getenv("ENABLE_WEBHOOKS"), ctrl.Log.WithName("setup"))
			}
			return runManager(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.metricsAddr, "metrics-bind-address", ":8080", "The address the metric endpoint binds to.")
	flags.StringVar(&opts.probeAddr, "health-probe-bind-address", ":8081", "The address the health probe endpoint binds to.")
	flags.BoolVar(&opts.enableLeaderElection, "leader-elect", false, "Enable leader election for controller manager. Only the leader writes objects, state and status.")
	flags.IntVar(&opts.webhookPort, "webhook-port", 9443, "Webhook server port.")
	flags.BoolVar(&opts.enableWebhooks, "enable-webhooks", opts.enableWebhooks, "Enable Kubernetes admission webhooks. Defaults to ENABLE_WEBHOOKS when unset.")
	flags.IntVar(&opts.secretLength, "secret-length", core.DefaultSecretLength, "Length of the generated password secret.")
	flags.DurationVar(&opts.resync, "resync", graylog.DefaultResync, "Interval between update-status passes.")

	return cmd
}

func runManager(ctx context.Context, opts runOptions) error {
	setupLog := ctrl.Log.WithName("setup")

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme: scheme,
		Metrics: metricsserver.Options{
			BindAddress: opts.metricsAddr,
		},
		HealthProbeBindAddress: opts.probeAddr,
		LeaderElection:         opts.enableLeaderElection,
		LeaderElectionID:       "graylog-operator",
		WebhookServer:          crwebhook.NewServer(crwebhook.Options{Port: opts.webhookPort}),
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		return err
	}

	if err := graylog.SetupWithManager(mgr, graylog.Options{SecretLength: opts.secretLength, Resync: opts.resync}); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "Graylog")
		return err
	}

	if opts.enableWebhooks {
		if err := (&graylogv1alpha1.Graylog{}).SetupWebhookWithManager(mgr); err != nil {
			setupLog.Error(err, "unable to create webhook", "webhook", "Graylog")
			return err
		}
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		return err
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		return err
	}

	group, groupContext := errgroup.WithContext(ctx)

	group.Go(func() error {
		setupLog.Info("starting manager")
		if err := mgr.Start(groupContext); err != nil {
			setupLog.Error(err, "problem running manager")
			return err
		}
		return nil
	})

	group.Go(func() error {
		watchLeadership(groupContext, mgr.Elected(), setupLog)
		return nil
	})

	return group.Wait()
}

// watchLeadership mirrors leadership into the leader gauge until ctx ends.
func watchLeadership(ctx context.Context, elected <-chan struct{}, log logr.Logger) {
	observabilitymetrics.RecordLeadership(false)

	select {
	case <-elected:
		log.Info("acquired leadership")
		observabilitymetrics.RecordLeadership(true)
	case <-ctx.Done():
		return
	}

	<-ctx.Done()
	observabilitymetrics.RecordLeadership(false)
	log.Info("released leadership")
}

// enableWebhooksFromEnv parses ENABLE_WEBHOOKS. Empty or invalid values enable webhooks.
func enableWebhooksFromEnv(value string, log logr.Logger) bool {
	if value == "" {
		return true
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Error(fmt.Errorf("invalid ENABLE_WEBHOOKS value %q: %w", value, err), "defaulting webhooks to enabled")
		return true
	}
	return parsed
}
