// Package commands implements the pidevmgrctl subcommands.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "pidevmgrctl",
	Short: "Drive a pidevmgrd DeviceMgr instance against the in-memory simulator",
	Long: `pidevmgrctl exercises DeviceMgr's Write/Read/SetForwardingPipelineConfig
surface against the in-memory pisim driver, for demonstration and ad-hoc
testing without a physical switch or BMv2 attached.

There is no running pidevmgrd to connect to over the wire (transport is out
of scope for this control plane); each pidevmgrctl invocation stands up its
own DeviceMgr and simulator, runs its command, and exits.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Exit prints an error to stderr and exits with code 1.
func Exit(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
	os.Exit(1)
}
