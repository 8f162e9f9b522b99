package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bareos/vadpdumper/dumpengine"
)

func showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "validate a dump stream from stdin without writing any disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := uuid.NewString()
			log.WithField("run", runID).WithField("op", "show").Info("starting")

			opts := dumpengine.ShowOptions{
				SectorsPerCall: viper.GetUint64("sectors-per-call"),
			}

			return runWithSignalHandling(func(ctx context.Context) error {
				return dumpengine.Show(ctx, os.Stdin, opts)
			})
		},
	}
	return cmd
}
