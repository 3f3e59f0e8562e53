package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ja7ad/cpupower/pkg/profile"
)

type globalOpts struct {
	profilePath string
	verbose     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var g globalOpts

	root := &cobra.Command{
		Use:   "cpupower",
		Short: "CPU battery drain estimation per application",
		Long: `The cpupower tool attributes CPU battery drain to applications using a
time-in-state power model: a constant CPU-active draw, a per-cluster draw and a
per-frequency draw, each weighted by how long the application kept the CPU in
that state. Coefficients come from a device power profile (YAML).

Examples:
  cpupower estimate --input dump.yaml --profile device.yaml --csv out.csv
  cpupower watch -s 10 -i 1s --tree $(pidof chromium)
  cpupower profile > device.yaml`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if g.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().StringVarP(&g.profilePath, "profile", "p", "", "power profile YAML (default: built-in profile)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log per-term model details")

	root.AddCommand(
		newEstimateCmd(&g),
		newWatchCmd(&g),
		newProfileCmd(&g),
	)
	return root
}

func (g *globalOpts) loadProfile() (*profile.Profile, error) {
	if g.profilePath == "" {
		return profile.Default(), nil
	}
	return profile.Load(g.profilePath)
}

func newProfileCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Print the effective power profile as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prof, err := g.loadProfile()
			if err != nil {
				return err
			}
			return prof.Encode(cmd.OutOrStdout())
		},
	}
}
