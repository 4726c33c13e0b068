package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/kindstore/internal/injector"
)

// NewRootCmd builds the kindstore command tree.
func NewRootCmd() *cobra.Command {
	var flags injector.Flags

	root := &cobra.Command{
		Use:           "kindstore",
		Short:         "In-memory entity store with live kind queries",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&flags.ConfigPath, "config", "c", "", "config file (.json, .yaml or .yml)")
	pf.StringVar(&flags.KindSet, "kindset", "", "kind-set strategy: flags, hashset or roaring")
	pf.StringVar(&flags.LogLevel, "log-level", "", "debug, info, warn, error or silent")

	root.AddCommand(newConfigCmd(&flags), newDemoCmd(&flags))
	return root
}

func newConfigCmd(flags *injector.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective config as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := injector.ProvideConfig(*flags)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err = enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
