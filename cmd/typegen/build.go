package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-typegen/config"
	"github.com/wippyai/wasm-typegen/pipeline"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] <manifest>",
	Short: "Compile every type of a manifest",
	Long:  "Compile every type declared in a TOML manifest and write one <type>.wasm per type.",
	Args:  cobra.ExactArgs(1),
	RunE:  buildExecution,
}

func init() {
	buildCmd.Flags().StringP("out", "o", ".", "output directory")
	buildCmd.Flags().IntP("jobs", "j", 0, "types compiled in parallel (0 = GOMAXPROCS)")
	buildCmd.Flags().Bool("verify", false, "compile every module with wazero before writing it")
}

func buildExecution(cmd *cobra.Command, args []string) error {
	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	verify, err := cmd.Flags().GetBool("verify")
	if err != nil {
		return err
	}

	manifest, err := config.Load(args[0])
	if err != nil {
		return err
	}
	builders, err := manifest.Builders()
	if err != nil {
		return err
	}

	c := &pipeline.Compiler{
		Logger: logger(),
		Limits: manifest.Limits.OutputLimits(),
		Jobs:   jobs,
		Verify: verify,
	}
	artifacts, err := c.Compile(cmd.Context(), builders)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, art := range artifacts {
		path := filepath.Join(outDir, art.Name+".wasm")
		if err := os.WriteFile(path, art.Binary, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		if fp, ok := art.StartFootprint(); ok {
			fmt.Fprintf(out, "%s: %d bytes, initializer max_stack=%d max_locals=%d\n",
				path, len(art.Binary), fp.MaxStack, fp.MaxLocals)
		} else {
			fmt.Fprintf(out, "%s: %d bytes, no initializer\n", path, len(art.Binary))
		}
	}
	return nil
}
