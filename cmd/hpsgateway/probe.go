package main

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"
)

// errNotReady makes the process exit non-zero after the report is printed.
var errNotReady = errors.New("not ready")

func newProbeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check readiness of the backend dependencies once",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			res := a.newManager(0).Ready(cmd.Context())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			a.log.Debug().Bool("ready", res.Ready).Dur("took", time.Since(start)).Msg("probe done")
			if !res.Ready {
				return errNotReady
			}
			return nil
		},
	}
	cmd.Flags().String("triton-url", "", "Base URL of the Triton inference server")
	cmd.Flags().String("downstream-health-url", "", "Optional VLM health URL")
	cmd.Flags().Int("health-timeout", 0, "Per-probe deadline in seconds")
	return cmd
}
