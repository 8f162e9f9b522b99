package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bareos/vadpdumper/dumpengine"
)

func restoreCmd() *cobra.Command {
	var restoreMetadata bool

	cmd := &cobra.Command{
		Use:   "restore <workfile>",
		Short: "read a stream from stdin and write its sectors to a virtual disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := uuid.NewString()
			log.WithField("run", runID).WithField("op", "restore").Info("starting")

			opts := dumpengine.RestoreOptions{
				CommonOptions:   commonOptionsFromViper(args[0]),
				RestoreMetadata: restoreMetadata,
			}

			return runWithSignalHandling(func(ctx context.Context) error {
				return dumpengine.Restore(ctx, os.Stdin, opts)
			})
		},
	}

	cmd.Flags().BoolVar(&restoreMetadata, "restore-metadata", false, "Replay stream metadata records onto the target disk")

	return cmd
}
