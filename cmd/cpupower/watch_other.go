//go:build !linux

package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func newWatchCmd(*globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [PID|PID..PID]...",
		Short: "Sample live processes and estimate their CPU drain (Linux only)",
		RunE: func(*cobra.Command, []string) error {
			return errors.New("watch is only supported on Linux")
		},
	}
}
