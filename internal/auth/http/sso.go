package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/ssohandoff/internal/auth/service"
	"github.com/aussiebroadwan/ssohandoff/pkg/authsdk"
	"github.com/aussiebroadwan/ssohandoff/pkg/httpx"
	"github.com/aussiebroadwan/ssohandoff/pkg/jwtx"
)

// SSOIssueHandler serves POST /sso/issue.
type SSOIssueHandler struct {
	Gateway *service.Gateway
}

// ServeHTTP godoc
//
//	@Summary		Issue an SSO token
//	@Description	Mints a single-use SSO token for the bearer of the access token. Hand it to a peer client, which redeems it within ten minutes.
//	@Tags			SSO
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.SSOTokenResponse	"ssoToken, expiresAt"
//	@Failure		401	{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		404	{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		429	{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		500	{object}	authsdk.ErrorResponse		"error, error_description"
//	@Router			/sso/issue [post].
func (h *SSOIssueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, ok := httpx.BearerToken(r)
	if !ok {
		httpx.WriteBearerError(w, "missing bearer token")
		return
	}

	tok, err := h.Gateway.IssueSSOToken(r.Context(), raw)
	switch {
	case errors.Is(err, service.ErrMissingSubject):
		authsdk.ErrSubjectNotFound.WriteError(w)
		return
	case errors.Is(err, service.ErrUnauthorized):
		httpx.WriteBearerError(w, "token verification failed")
		return
	case err != nil:
		writeServerError(w, r, "sso issue failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.SSOTokenResponse{
		SSOToken:  tok.Token,
		ExpiresAt: tok.ExpiresAt,
	})
}

// SSORedeemHandler serves POST /sso/redeem.
type SSORedeemHandler struct {
	Gateway *service.Gateway
}

// ServeHTTP godoc
//
//	@Summary		Redeem an SSO token
//	@Description	Consumes an SSO token and returns a fresh access token for its user. Anonymous: holding the token is the credential.
//	@Description	Unknown, used and expired tokens all get the same 400.
//	@Tags			SSO
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RedeemRequest	true	"ssoToken"
//	@Success		200		{object}	authsdk.RedeemResponse	"accessToken, tokenType, expiresIn, userDetails"
//	@Failure		400		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		429		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		500		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/sso/redeem [post].
func (h *SSORedeemHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RedeemRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.Gateway.RedeemSSOToken(r.Context(), req.SSOToken)
	if errors.Is(err, service.ErrSSORejected) {
		authsdk.ErrInvalidSSOToken.WriteError(w)
		return
	}
	if err != nil {
		writeServerError(w, r, "sso redeem failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.RedeemResponse{
		TokenResponse: tokenResponse(res.AccessToken),
		UserDetails: authsdk.UserDetails{
			ID:       res.User.ID,
			Email:    res.User.Email,
			Username: res.User.Username,
		},
	})
}

func tokenResponse(tok jwtx.Token) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken: tok.Value,
		TokenType:   authsdk.TokenTypeBearer,
		ExpiresIn:   int(tok.Lifetime().Seconds()),
	}
}
