// Command typegen builds, runs and inspects generated types.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasm-typegen/pipeline"
)

var rootCmd = &cobra.Command{
	Use:               "typegen",
	Short:             "Generate WebAssembly types from manifests",
	Long:              `typegen compiles type manifests into WebAssembly modules whose start function runs every initializer contribution in order.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.AddCommand(buildCmd, runCmd, inspectCmd, exploreCmd)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log pipeline activity to stderr")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}
	if !verbose {
		pipeline.SetLogger(nil)
		return nil
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	pipeline.SetLogger(log)
	return nil
}

func logger() *zap.Logger {
	return pipeline.Logger()
}

// useColor resolves the --color flag against the terminal.
func useColor(cmd *cobra.Command) bool {
	flag, err := cmd.Flags().GetString("color")
	if err != nil {
		return false
	}
	return flag == "on" || (flag == "auto" && isTerminal(os.Stdout))
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
