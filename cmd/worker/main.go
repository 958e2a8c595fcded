package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/logging"
)

var (
	// Version is set at build time.
	Version = "dev"

	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "worker",
		Short: "Offline tooling for APK resource trees",
		Long: `worker runs the resource patcher, build backend and code generator
without the HTTP API. It is meant for scripting and debugging.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if verbose {
				level = "debug"
			}
			_, err := logging.Setup("development", level)
			return err
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(patchCmd)
	rootCmd.AddCommand(decompileCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(generateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "worker version: %s\n", Version)
	},
}
