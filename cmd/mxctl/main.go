package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	klog.InitFlags(nil)

	root := newRootCommand()
	root.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	return root.ExecuteContext(ctx)
}

type options struct {
	engine string
}

func newRootCommand() *cobra.Command {
	opt := &options{engine: "mxnet"}

	root := &cobra.Command{
		Use:   "mxctl",
		Short: "Inspect the MXNet engine and manage parameter files",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SilenceUsage = true
		},
	}
	root.PersistentFlags().StringVar(&opt.engine, "engine", opt.engine, "engine to use: mxnet or fallback")

	root.AddCommand(newOpsCommand(opt))
	root.AddCommand(newDescribeCommand(opt))
	root.AddCommand(newDevicesCommand(opt))
	root.AddCommand(newParamsCommand(opt))
	return root
}
