package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aussiebroadwan/ssohandoff/pkg/authsdk"
	"github.com/spf13/cobra"
)

type credentials struct {
	username string
	password string
}

func (c *credentials) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&c.password, "password", "p", "", "password (env SSOCTL_PASSWORD)")
	_ = cmd.MarkFlagRequired("username")
}

func (c *credentials) pass() (string, error) {
	if c.password != "" {
		return c.password, nil
	}
	if p := os.Getenv("SSOCTL_PASSWORD"); p != "" {
		return p, nil
	}
	return "", errors.New("password required (--password or SSOCTL_PASSWORD)")
}

// sessionOutput is what login and redeem print.
type sessionOutput struct {
	AccessToken string               `json:"accessToken"`
	ExpiresAt   time.Time            `json:"expiresAt"`
	User        *authsdk.UserDetails `json:"user,omitempty"`
}

func newSessionOutput(s *authsdk.Session) sessionOutput {
	return sessionOutput{AccessToken: s.AccessToken(), ExpiresAt: s.ExpiresAt(), User: s.User()}
}

func newRegisterCmd(g *globalFlags) *cobra.Command {
	var creds credentials
	var email string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := creds.pass()
			if err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()

			resp, err := g.client().Register(ctx, authsdk.RegisterRequest{
				Username: creds.username,
				Email:    email,
				Password: pw,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	creds.register(cmd)
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLoginCmd(g *globalFlags) *cobra.Command {
	var creds credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print an access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := creds.pass()
			if err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()

			sess, err := g.client().Login(ctx, creds.username, pw)
			if err != nil {
				return err
			}
			return printJSON(cmd, newSessionOutput(sess))
		},
	}
	creds.register(cmd)
	return cmd
}

func newIssueCmd(g *globalFlags) *cobra.Command {
	var token string
	var peer string

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Mint a single-use SSO token for an access token",
		Long: `Mint a single-use SSO token for the user behind --token. With --peer the
output also carries the URL to send the browser to.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := g.context(cmd)
			defer cancel()

			// expiresIn only drives the local expiry guard, the gateway decides
			sess := g.client().NewSessionFromToken(token, int(time.Hour.Seconds()))
			sso, err := sess.IssueSSOToken(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, issueOutput(sso, peer))
		},
	}
	cmd.Flags().StringVarP(&token, "token", "t", "", "access token")
	cmd.Flags().StringVar(&peer, "peer", "", "peer client URL to build a handoff link for")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

type issued struct {
	*authsdk.SSOTokenResponse

	HandoffURL string `json:"handoffUrl,omitempty"`
}

func issueOutput(sso *authsdk.SSOTokenResponse, peer string) any {
	out := issued{SSOTokenResponse: sso}
	if peer != "" {
		if u, err := authsdk.HandoffURL(peer, sso.SSOToken); err == nil {
			out.HandoffURL = u
		}
	}
	return out
}

func newRedeemCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "redeem <sso-token>",
		Short: "Trade an SSO token for an access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := g.context(cmd)
			defer cancel()

			sess, err := g.client().RedeemSSOToken(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, newSessionOutput(sess))
		},
	}
}

// handoffOutput shows both sides of a handoff.
type handoffOutput struct {
	Origin  sessionOutput `json:"origin"`
	SSO     any           `json:"sso"`
	Peer    sessionOutput `json:"peer"`
	Replay  string        `json:"replay"`
	Elapsed string        `json:"elapsed"`
}

func newHandoffCmd(g *globalFlags) *cobra.Command {
	var creds credentials
	var peer string

	cmd := &cobra.Command{
		Use:   "handoff",
		Short: "Log in, issue an SSO token and redeem it as a peer would",
		Long: `Runs a whole handoff: log in on the origin client, mint an SSO token, redeem
it as the peer client, then try to redeem it again to show it is spent.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := creds.pass()
			if err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()

			start := time.Now()
			client := g.client()

			origin, err := client.Login(ctx, creds.username, pw)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			sso, err := origin.IssueSSOToken(ctx)
			if err != nil {
				return fmt.Errorf("issue: %w", err)
			}
			peerSess, err := client.RedeemSSOToken(ctx, sso.SSOToken)
			if err != nil {
				return fmt.Errorf("redeem: %w", err)
			}

			replay := "accepted"
			if _, err := client.RedeemSSOToken(ctx, sso.SSOToken); err != nil {
				replay = "rejected: " + err.Error()
			}

			return printJSON(cmd, handoffOutput{
				Origin:  newSessionOutput(origin),
				SSO:     issueOutput(sso, peer),
				Peer:    newSessionOutput(peerSess),
				Replay:  replay,
				Elapsed: time.Since(start).Round(time.Millisecond).String(),
			})
		},
	}
	creds.register(cmd)
	cmd.Flags().StringVar(&peer, "peer", "", "peer client URL to build a handoff link for")
	return cmd
}
