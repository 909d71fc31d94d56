// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/modgate/pkg/manifest"
)

func newProbeCommand(app *App) *cobra.Command {
	var format string

	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Probe the live environment and print a snapshot",
		Long: `Run the configured probe scripts and print the resulting environment
snapshot. The output can be saved and passed to 'modgate check --env'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f := manifest.Format(format)
			switch f {
			case manifest.FormatCUE, manifest.FormatJSON, manifest.FormatTOML:
			default:
				return fmt.Errorf("invalid snapshot format %q (valid: cue, json, toml)", format)
			}

			cfg, err := app.loadConfig(ctx)
			if err != nil {
				silence(cmd)
				return app.inputError(err)
			}

			snap, err := app.environment(ctx, cfg, "", true, app.logger(cfg))
			if err != nil {
				silence(cmd)
				return app.inputError(err)
			}

			data, err := manifest.EncodeEnvironment(snap, f)
			if err != nil {
				return err
			}
			_, err = app.stdout.Write(data)
			return err
		},
	}

	probeCmd.Flags().StringVarP(&format, "format", "f", string(manifest.FormatCUE), "snapshot format: cue, json or toml")

	return probeCmd
}
