package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AdrianMsc/msc-component-status-ws/pkg/config"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/observability"
)

func newHealthcheckCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check the configured dependencies and exit non-zero when unhealthy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			logger := observability.NewLogger(observability.WarnLevel, os.Stderr)
			b, err := openBackends(ctx, cfg, nil, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			return reportHealth(ctx, b.healthChecker(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "overall check timeout")

	return cmd
}

// reportHealth writes the health status as JSON and fails when the service
// would not be ready
func reportHealth(ctx context.Context, checker *observability.HealthChecker, out io.Writer) error {
	status := checker.Check(ctx)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(status); err != nil {
		return fmt.Errorf("failed to encode health status: %w", err)
	}

	if status.Status == observability.StatusUnhealthy {
		return fmt.Errorf("service is %s", status.Status)
	}
	return nil
}
