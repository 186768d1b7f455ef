package authsdk

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// HandoffParam is the query parameter a relying client reads the SSO token
// from when a peer redirects the browser to it.
const HandoffParam = "ssoToken"

// ErrNoHandoffToken is returned when a request carries no SSO token.
var ErrNoHandoffToken = errors.New("authsdk: no sso token in request")

// HandoffURL appends ssoToken to peerBase so the browser can be redirected to
// the peer client, which then redeems it.
func HandoffURL(peerBase, ssoToken string) (string, error) {
	u, err := url.Parse(peerBase)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("authsdk: peer url must be absolute")
	}

	q := u.Query()
	q.Set(HandoffParam, ssoToken)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// HandoffToken extracts the SSO token from an incoming redirect.
func HandoffToken(r *http.Request) (string, error) {
	tok := strings.TrimSpace(r.URL.Query().Get(HandoffParam))
	if tok == "" {
		return "", ErrNoHandoffToken
	}
	return tok, nil
}
