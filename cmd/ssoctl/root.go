package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/aussiebroadwan/ssohandoff/pkg/authsdk"
	"github.com/spf13/cobra"
)

const defaultGateway = "http://localhost:8080"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	gateway string
	timeout time.Duration
}

// NewRootCmd creates the root command for ssoctl.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "ssoctl",
		Short: "Drive the SSO handoff gateway from the command line",
		Long: `ssoctl registers users, logs in, and issues and redeems single-use SSO
tokens against an authentication gateway. Output is JSON.`,
		SilenceUsage: true,
	}

	gw := os.Getenv("SSOCTL_GATEWAY")
	if gw == "" {
		gw = defaultGateway
	}
	cmd.PersistentFlags().StringVar(&g.gateway, "gateway", gw, "gateway base URL (env SSOCTL_GATEWAY)")
	cmd.PersistentFlags().DurationVar(&g.timeout, "timeout", 10*time.Second, "per command timeout")

	cmd.AddCommand(newRegisterCmd(g))
	cmd.AddCommand(newLoginCmd(g))
	cmd.AddCommand(newIssueCmd(g))
	cmd.AddCommand(newRedeemCmd(g))
	cmd.AddCommand(newHandoffCmd(g))

	return cmd
}

func (g *globalFlags) client() *authsdk.SDKClient {
	c := authsdk.NewSDKClient(g.gateway)
	c.HTTPClient.Timeout = g.timeout
	return c
}

func (g *globalFlags) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), g.timeout)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
