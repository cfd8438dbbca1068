package main

import (
	"context"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/yaml"

	"graylogoperator/pkg/adapters"
	"graylogoperator/pkg/controllers/graylog"
	"graylogoperator/pkg/core"
	"graylogoperator/pkg/state"
)

type renderOptions struct {
	statePath      string
	name           string
	leader         bool
	port           int32
	adminPassword  string
	image          string
	pullSecret     string
	ingressAddress string
	runtimeReady   bool
	secretLength   int
	searchIndex    map[string]string
	datastore      map[string]string
	peers          map[string]string
	broken         []string
	stop           bool
}

// renderOutput is what render prints.
type renderOutput struct {
	Status       core.UnitStatus             `json:"status"`
	Dependencies []core.DependencyStatus     `json:"dependencies"`
	Passes       int                         `json:"passes"`
	ArtifactHash string                      `json:"artifactHash,omitempty"`
	Artifact     *core.ConfigurationArtifact `json:"artifact,omitempty"`
}

func newRenderCommand() *cobra.Command {
	opts := renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Reconcile one unit offline against a state file and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return render(cmd.Context(), opts, cmd.OutOrStdout(), ctrl.Log.WithName("render"))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.statePath, "state", "", "Path of the state file, created when absent.")
	flags.StringVar(&opts.name, "name", "graylog", "Application name.")
	flags.BoolVar(&opts.leader, "leader", true, "Run as the leader unit.")
	flags.Int32Var(&opts.port, "port", core.DefaultPort, "Graylog service port.")
	flags.StringVar(&opts.adminPassword, "admin-password", "", "Admin password.")
	flags.StringVar(&opts.image, "image", "", "Workload image.")
	flags.StringVar(&opts.pullSecret, "pull-secret", "", "Image pull secret name.")
	flags.StringVar(&opts.ingressAddress, "ingress-address", "", "Ingress address; empty defers publishing.")
	flags.BoolVar(&opts.runtimeReady, "runtime-ready", false, "Report the runtime as ready.")
	flags.IntVar(&opts.secretLength, "secret-length", core.DefaultSecretLength, "Length of the generated password secret.")
	flags.StringToStringVar(&opts.searchIndex, "search-index", nil, "elasticsearch relation data, e.g. ingress-address=10.0.0.1,port=9200")
	flags.StringToStringVar(&opts.datastore, "datastore", nil, "mongodb relation data, e.g. replica_set_uri=mongo://10.0.0.2:27017/,replica_set_name=rs0")
	flags.StringToStringVar(&opts.peers, "peers", nil, "peers relation data")
	flags.StringSliceVar(&opts.broken, "break", nil, "Relations to tear down (mongodb, elasticsearch, peers).")
	flags.BoolVar(&opts.stop, "stop", false, "Deliver the stop trigger last.")
	_ = cmd.MarkFlagRequired("state")

	return cmd
}

// render loads the state file, drains the triggers the flags describe
// through a unit, saves the state and prints the outcome as YAML.
func render(ctx context.Context, opts renderOptions, out io.Writer, log logr.Logger) error {
	triggers, err := renderTriggers(opts)
	if err != nil {
		return err
	}

	store := &state.FileStore{Path: opts.statePath}
	unitState, err := store.Load(ctx)
	if err != nil {
		return err
	}

	static := &adapters.Static{
		Password:   opts.adminPassword,
		ListenPort: opts.port,
		Ready:      opts.runtimeReady,
		Image:      core.ImageDetails{ImagePath: opts.image, PullSecret: opts.pullSecret},
		Ingress:    opts.ingressAddress,
	}
	publisher := &adapters.RecordingPublisher{LastHash: unitState.ArtifactHash}

	unit := graylog.NewUnit(graylog.UnitConfig{
		Name:         opts.name,
		State:        unitState,
		Leadership:   adapters.StaticLeadership(opts.leader),
		Config:       static,
		Runtime:      static,
		Images:       static,
		Ingress:      static,
		Publisher:    publisher,
		SecretLength: opts.secretLength,
		Log:          log,
	})
	unit.Enqueue(triggers...)

	result, err := unit.Drain(ctx)
	if err != nil {
		return err
	}
	if _, err := unit.Persist(ctx, store); err != nil {
		return err
	}

	raw, err := yaml.Marshal(renderOutput{
		Status:       result.Status,
		Dependencies: unit.Registry().Statuses(),
		Passes:       result.Passes,
		ArtifactHash: result.Hash,
		Artifact:     result.Artifact,
	})
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	_, err = out.Write(raw)
	return err
}

// renderTriggers orders relation changes, then teardowns, then a config
// change, then the optional stop.
func renderTriggers(opts renderOptions) ([]graylog.Trigger, error) {
	var triggers []graylog.Trigger

	relations := map[core.DependencyKind]map[string]string{
		core.DependencyDatastore:   opts.datastore,
		core.DependencySearchIndex: opts.searchIndex,
		core.DependencyPeers:       opts.peers,
	}
	for _, kind := range core.AllDependencies {
		if fields := relations[kind]; len(fields) > 0 {
			triggers = append(triggers, graylog.RelationChanged(kind, fields))
		}
	}

	for _, name := range opts.broken {
		kind, err := parseDependencyKind(name)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, graylog.RelationBroken(kind))
	}

	if opts.runtimeReady {
		triggers = append(triggers, graylog.Trigger{Kind: graylog.TriggerRuntimeReady})
	} else {
		triggers = append(triggers, graylog.Trigger{Kind: graylog.TriggerConfigChanged})
	}

	if opts.stop {
		triggers = append(triggers, graylog.Trigger{Kind: graylog.TriggerStop})
	}

	return triggers, nil
}

func parseDependencyKind(name string) (core.DependencyKind, error) {
	for _, kind := range core.AllDependencies {
		if string(kind) == name {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown relation %q, expected one of %v", name, core.AllDependencies)
}
