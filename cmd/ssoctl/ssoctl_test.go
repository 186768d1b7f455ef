package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/ssohandoff/internal/auth/app"
	"github.com/stretchr/testify/require"
)

func startGateway(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	gw, err := app.NewWithLogger(app.Config{
		Issuer:               "ssoctl-test",
		SigningKey:           strings.Repeat("c", 32),
		AccessTTL:            time.Minute,
		SSOTTL:               time.Minute,
		Store:                app.StoreSQLite,
		DatabaseFile:         filepath.Join(dir, "auth.db"),
		SSOStore:             app.SSOStoreDatabase,
		PepperFile:           filepath.Join(dir, "pepper"),
		Env:                  "test",
		HousekeepingInterval: time.Hour,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })

	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestRootHelp(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"register", "login", "issue", "redeem", "handoff"} {
		require.Contains(t, out, sub)
	}
}

func TestRedeemRequiresToken(t *testing.T) {
	_, err := run(t, "redeem")
	require.Error(t, err)
}

func TestCommandsAgainstGateway(t *testing.T) {
	base := startGateway(t)
	t.Setenv("SSOCTL_PASSWORD", "Secret123!")

	_, err := run(t, "--gateway", base, "register", "-u", "alice", "-e", "alice@example.com")
	require.NoError(t, err)

	out, err := run(t, "--gateway", base, "login", "-u", "alice")
	require.NoError(t, err)
	var login sessionOutput
	require.NoError(t, json.Unmarshal([]byte(out), &login))
	require.NotEmpty(t, login.AccessToken)

	out, err = run(t, "--gateway", base, "issue", "-t", login.AccessToken, "--peer", "https://two.example.com/sso")
	require.NoError(t, err)
	var iss struct {
		SSOToken   string `json:"ssoToken"`
		HandoffURL string `json:"handoffUrl"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &iss))
	require.NotEmpty(t, iss.SSOToken)
	require.Equal(t, "https://two.example.com/sso?ssoToken="+iss.SSOToken, iss.HandoffURL)

	out, err = run(t, "--gateway", base, "redeem", iss.SSOToken)
	require.NoError(t, err)
	var peer sessionOutput
	require.NoError(t, json.Unmarshal([]byte(out), &peer))
	require.NotNil(t, peer.User)
	require.Equal(t, "alice", peer.User.Username)

	_, err = run(t, "--gateway", base, "redeem", iss.SSOToken)
	require.Error(t, err)
}

func TestHandoffCommand(t *testing.T) {
	base := startGateway(t)

	_, err := run(t, "--gateway", base, "register", "-u", "bob", "-e", "bob@example.com", "-p", "Secret123!")
	require.NoError(t, err)

	out, err := run(t, "--gateway", base, "handoff", "-u", "bob", "-p", "Secret123!")
	require.NoError(t, err)

	var res struct {
		Origin sessionOutput `json:"origin"`
		Peer   sessionOutput `json:"peer"`
		Replay string        `json:"replay"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotEmpty(t, res.Origin.AccessToken)
	require.NotEmpty(t, res.Peer.AccessToken)
	require.Equal(t, "bob", res.Peer.User.Username)
	require.True(t, strings.HasPrefix(res.Replay, "rejected"), res.Replay)
}

func TestLoginWrongPassword(t *testing.T) {
	base := startGateway(t)

	_, err := run(t, "--gateway", base, "login", "-u", "nobody", "-p", "Secret123!")
	require.ErrorContains(t, err, "invalid_grant")
}
