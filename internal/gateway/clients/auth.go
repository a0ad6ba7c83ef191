package clients

import (
	"context"
	"net/http"

	"anypos-register/internal/apperror"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges operator credentials for a bearer token. Bad credentials
// come back as an unauthorized TransportError.
func (c *APIClient) Login(ctx context.Context, username, password string) (string, error) {
	var tok TokenResponse
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "auth/login",
		body:     loginRequest{Username: username, Password: password},
		resource: "user",
	}, &tok)
	if err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", &apperror.TransportError{Status: http.StatusOK, Message: "login response carried no access token"}
	}
	return tok.AccessToken, nil
}
