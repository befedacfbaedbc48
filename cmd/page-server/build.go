package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"page-server/internal/assets"
	"page-server/internal/startup"
)

func buildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Fingerprint client assets and write the build manifest",
		Long: `Copy PUBLIC_DIR into BUILD_DIR/client, fingerprint every file under
SOURCE_DIR into BUILD_DIR/client/assets and write BUILD_DIR/server/manifest.json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := startup.Load()
			if err != nil {
				return err
			}

			start := time.Now()
			m, err := assets.Build(cfg.BuildOptions())
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Built %d assets in %v\n", len(m.Entries), time.Since(start).Round(time.Millisecond))
			for _, name := range m.Names() {
				fmt.Fprintf(out, "  %s -> %s\n", name, m.Entries[name])
			}
			fmt.Fprintf(out, "Manifest %s (version %s)\n", cfg.ManifestPath, m.Version)
			return nil
		},
	}
}
