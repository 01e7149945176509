// Command nwbctl is a local operator CLI for the conversion orchestrator.
// It drives the engine without a browser client:
// "serve" runs the same HTTP entry point as cmd/server, and "simulate"
// walks a recording directory through the engine in-process for local
// development and smoke testing.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	listenAddr string
	stagingDir string
	logMode    string

	inputPath string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "nwbctl",
	Short: "Operator CLI for the conversion orchestrator",
	Long: `nwbctl drives the conversational conversion orchestrator without a
browser client: it can run the server in the foreground, or upload a
recording to an in-process engine and start its conversion, printing the
resulting status (the first question asked, or the outcome) for local
development.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "override LISTEN_ADDR")
	serveCmd.Flags().StringVar(&stagingDir, "staging-dir", "", "override STAGING_DIR")

	simulateCmd.Flags().StringVar(&inputPath, "input", "", "path to a recording file or directory (required)")
	simulateCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(serveCmd, simulateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
