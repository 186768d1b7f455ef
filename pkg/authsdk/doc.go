/*
Package authsdk is the Go client for the SSO handoff gateway, used by relying
clients to sign users in once and carry that sign-in over to peer clients.

# SDKClient vs Session

  - SDKClient: anonymous endpoints (register, login, redeem, health)
  - Session: a user's access token plus the calls that need it

Create an SDKClient and log in:

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, err := client.Login(ctx, "alice", "Secret123!")

# Handoff

Client A asks for a single-use SSO token and redirects the browser to client B:

	sso, err := session.IssueSSOToken(ctx)
	target, err := authsdk.HandoffURL("https://client-b.example.com/sso", sso.SSOToken)

Client B pulls the token out of the request and redeems it. The gateway accepts
each token once, within ten minutes of issue:

	tok, err := authsdk.HandoffToken(r)
	peerSession, err := client.RedeemSSOToken(ctx, tok)
	fmt.Println(peerSession.User().Username)

# Errors

Every failure reported by the gateway is an *APIError. Compare with the
predefined values:

	if errors.Is(err, authsdk.ErrInvalidSSOToken) {
		// unknown, used or expired, the gateway does not say which
	}

Registration failures carry the broken rules in APIError.Validation.

Sessions are safe for concurrent use. They are not refreshed; once the access
token expires calls return ErrSessionExpired.
*/
package authsdk
