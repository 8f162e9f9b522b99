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

func dumpCmd() *cobra.Command {
	var (
		saveMetadata           bool
		disableAllocationQuery bool
		chunkSizeBytes         uint64
		cloneVMDKPath          string
		rawDiskPath            string
	)

	cmd := &cobra.Command{
		Use:   "dump <workfile>",
		Short: "stream a virtual disk's changed sectors to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := uuid.NewString()
			log.WithField("run", runID).WithField("op", "dump").Info("starting")

			opts := dumpengine.DumpOptions{
				CommonOptions:          commonOptionsFromViper(args[0]),
				SaveMetadata:           saveMetadata,
				DisableAllocationQuery: disableAllocationQuery,
				ChunkSizeBytes:         chunkSizeBytes,
				CloneVMDKPath:          cloneVMDKPath,
				RawDiskPath:            rawDiskPath,
			}

			return runWithSignalHandling(func(ctx context.Context) error {
				return dumpengine.Dump(ctx, os.Stdout, opts)
			})
		},
	}

	cmd.Flags().BoolVar(&saveMetadata, "save-metadata", false, "Enumerate and save VDDK metadata keys")
	cmd.Flags().BoolVar(&disableAllocationQuery, "disable-allocation-query", false, "Treat the whole disk as allocated instead of querying VDDK")
	cmd.Flags().Uint64Var(&chunkSizeBytes, "chunk-size", 0, "Allocation query chunk size in bytes")
	cmd.Flags().StringVar(&cloneVMDKPath, "clone-vmdk", "", "Also write a clone VMDK alongside the stream")
	cmd.Flags().StringVar(&rawDiskPath, "raw-disk", "", "Also write raw sector data to this file")

	return cmd
}

// commonOptionsFromViper reads the persistent flags dump and restore share,
// via viper so environment variables and the config file apply uniformly.
func commonOptionsFromViper(workFilePath string) dumpengine.CommonOptions {
	return dumpengine.CommonOptions{
		WorkFilePath:        workFilePath,
		DiskNameOverride:    viper.GetString("local-disk-name"),
		CreateLocal:         viper.GetBool("create-local"),
		LocalVMDK:           viper.GetBool("local-vmdk"),
		DisableSizeCheck:    viper.GetBool("disable-size-check"),
		CleanupOnDisconnect: viper.GetBool("cleanup-on-disconnect"),
		CleanupOnStart:      viper.GetBool("cleanup-on-start"),
		MultiThreaded:       viper.GetBool("multi-threaded"),
		SectorsPerCall:      viper.GetUint64("sectors-per-call"),
		DiskType:            viper.GetString("disk-type"),
		ForcedTransport:     viper.GetString("forced-transport"),
		ConfigFile:          viper.GetString("config-file"),
		SkipInventoryCheck:  viper.GetBool("skip-inventory-check"),
		RateLimitMBps:       viper.GetFloat64("rate-limit-mbps"),
		QueueDepth:          viper.GetInt("queue-depth"),
	}
}
