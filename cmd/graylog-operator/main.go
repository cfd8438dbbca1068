package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

func newRootCommand() *cobra.Command {
	zapOptions := zap.Options{TimeEncoder: zapcore.ISO8601TimeEncoder}

	root := &cobra.Command{
		Use:          "graylog-operator",
		Short:        "Runs and configures Graylog units",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			ctrl.SetLogger(zap.New(zap.UseFlagOptions(&zapOptions)))
		},
	}

	goFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	zapOptions.BindFlags(goFlags)
	root.PersistentFlags().AddGoFlagSet(goFlags)

	root.AddCommand(newRunCommand(), newRenderCommand())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
