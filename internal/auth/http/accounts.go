package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/ssohandoff/internal/auth/service"
	"github.com/aussiebroadwan/ssohandoff/pkg/authsdk"
	"github.com/aussiebroadwan/ssohandoff/pkg/httpx"
)

// RegisterHandler serves POST /register.
type RegisterHandler struct {
	Gateway *service.Gateway
}

// ServeHTTP godoc
//
//	@Summary		Register a user
//	@Description	Creates an account. Every broken rule is listed in the 400 response.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest			true	"username, email, password"
//	@Success		200		{object}	authsdk.RegisterResponse		"result, userId"
//	@Failure		400		{object}	authsdk.ValidationErrorResponse	"errors"
//	@Failure		429		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Failure		500		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Router			/register [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	u, err := h.Gateway.Register(r.Context(), req.Username, req.Email, req.Password)
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		issues := make([]authsdk.ValidationError, 0, len(verr.Issues))
		for _, i := range verr.Issues {
			issues = append(issues, authsdk.ValidationError{Code: i.Code, Description: i.Description})
		}
		authsdk.NewValidationError(issues).WriteError(w)
		return
	case err != nil:
		writeServerError(w, r, "register failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.RegisterResponse{
		Result: "user registered successfully",
		UserID: u.ID,
	})
}

// LoginHandler serves POST /login.
type LoginHandler struct {
	Gateway *service.Gateway
}

// ServeHTTP godoc
//
//	@Summary		Log in
//	@Description	Exchanges a username and password for an access token. Failures never say which of the two was wrong.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"username, password"
//	@Success		200		{object}	authsdk.TokenResponse	"accessToken, tokenType, expiresIn"
//	@Failure		400		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		429		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		500		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.Gateway.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		authsdk.ErrInvalidCredentials.WriteError(w)
		return
	}
	if err != nil {
		writeServerError(w, r, "login failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(res.AccessToken))
}
