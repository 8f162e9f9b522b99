package main

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bareos/vadpdumper/cliutil"
	"github.com/bareos/vadpdumper/vddksession"
	"github.com/bareos/vadpdumper/vixdisklib"
)

const (
	envPrefix   = "VADPDUMPER"
	configName  = ".vadpdumper"
	exitSuccess = 0
	exitFailure = 1
	exitPanic   = 10
)

func newRootCmd() *cobra.Command {
	var (
		flagVerbose     int
		flagVerboseName = "verbose"
	)

	cmd := &cobra.Command{
		Use:               "vadpdumper",
		Short:             "stream a VMware virtual disk to or from a byte stream over VDDK",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			bindViper(cmd)
			return cliutil.SetupLogging(flagVerbose, cmd.Flags().Changed(flagVerboseName))
		},
	}

	cmd.PersistentFlags().IntVarP(&flagVerbose, flagVerboseName, "v", 1,
		"Verbosity of logging: 0 = quiet, 1 = info, 2 = debug, 3 = trace")
	cmd.PersistentFlags().String("config-file", "", "VDDK config file to pass to InitEx")
	cmd.PersistentFlags().Bool("create-local", false, "Create the target disk before opening it for writing (also skips size check on restore)")
	cmd.PersistentFlags().Bool("local-vmdk", false, "Treat the disk path as a local VMDK, skipping the PrepareForAccess/EndAccess network session bracket")
	cmd.PersistentFlags().Bool("disable-size-check", false, "Skip target geometry validation on restore")
	cmd.PersistentFlags().Bool("cleanup-on-disconnect", false, "Run a library-wide cleanup pass on disconnect")
	cmd.PersistentFlags().Bool("cleanup-on-start", false, "Run a library-wide cleanup pass before connecting")
	cmd.PersistentFlags().String("local-disk-name", "", "Override the work file's disk path")
	cmd.PersistentFlags().String("forced-transport", "", "Force a specific VDDK transport mode")
	cmd.PersistentFlags().Bool("multi-threaded", false, "Overlap VDDK I/O with stream I/O via the copy pipeline")
	cmd.PersistentFlags().Uint64("sectors-per-call", 0, "Sub-batch size in sectors for each VDDK read/write call (default 1024)")
	cmd.PersistentFlags().String("disk-type", "", "Disk type to use when creating a disk (default monolithic_sparse)")
	cmd.PersistentFlags().Bool("skip-inventory-check", false, "Skip the govmomi pre-flight VM/snapshot moref check")
	cmd.PersistentFlags().Float64("rate-limit-mbps", 0, "Cap VDDK<->stream throughput in MB/s (0 = unlimited)")
	cmd.PersistentFlags().Int("queue-depth", 0, "Copy pipeline queue depth in batches (default 32)")

	cmd.AddCommand(dumpCmd())
	cmd.AddCommand(restoreCmd())
	cmd.AddCommand(showCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// bindViper wires every persistent flag to viper so it can also be set via
// a VADPDUMPER_* environment variable or ~/.vadpdumper.yaml, the same
// generalized version of the teacher's own readConfig()/config.yml pattern.
func bindViper(cmd *cobra.Command) {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetConfigName(configName)
	viper.SetConfigType("yaml")
	_ = viper.ReadInConfig()

	_ = viper.BindPFlags(cmd.InheritedFlags())
}

// exitCodeFor maps an operation's returned error to the process exit code
// documented for the dumper: 0 on success, 10 on a VDDK library panic, the
// signal number when a termination signal interrupted the run, 1 otherwise.
func exitCodeFor(err error) int {
	if err == nil {
		return exitSuccess
	}
	var panicErr *vixdisklib.PanicError
	if errors.As(err, &panicErr) {
		return exitPanic
	}
	var sigErr *signalError
	if errors.As(err, &sigErr) {
		return sigErr.signal
	}
	return exitFailure
}

// signalError reports that a run was aborted by a termination signal
// (SIGHUP, SIGINT, SIGTERM), so main can exit with the signal's number as
// the original tool did.
type signalError struct {
	signal int
}

func (e *signalError) Error() string {
	return "vadpdumper: terminated by signal " + strconv.Itoa(e.signal)
}

// runWithSignalHandling installs the cooperative signal watcher and runs op
// under the resulting context, translating a signal-triggered cancellation
// into a signalError so exitCodeFor can map it to the signal number.
func runWithSignalHandling(op func(ctx context.Context) error) error {
	ctx, stop, receivedSignal := vddksession.WatchSignals(context.Background())
	defer stop()

	err := op(ctx)
	if n := atomic.LoadInt32(receivedSignal); n != 0 {
		return &signalError{signal: int(n)}
	}
	return err
}
