package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/eventrelay/internal/client"
	"github.com/alfredjeanlab/eventrelay/internal/server"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the publisher or the drain worker",
	Long: `Check the health of the publisher over HTTP, or of the drain worker
over gRPC when --drain is given.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		drainAddr, _ := cmd.Flags().GetString("drain")

		var (
			target string
			status string
			ok     bool
		)
		if drainAddr != "" {
			hc, err := client.NewHealthClient(drainAddr)
			if err != nil {
				return err
			}
			defer hc.Close()
			target = server.DrainService
			status, err = hc.Check(cmd.Context(), server.DrainService)
			if err != nil {
				return fmt.Errorf("checking health: %w", err)
			}
			ok = status == "SERVING"
		} else {
			c := client.NewHTTPClient(httpURL, authToken)
			defer c.Close()
			target = "publisher"
			var err error
			status, err = c.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("checking health: %w", err)
			}
			ok = status == "ok"
		}

		if err := printHealth(cmd.OutOrStdout(), target, status); err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("unhealthy: %s", status)
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().String("drain", "", "gRPC address of a drain worker (e.g. localhost:9090)")
}
