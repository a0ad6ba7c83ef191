package middleware

import (
	"context"

	"anypos-register/internal/apperror"
	"anypos-register/internal/services/session"

	"github.com/gin-gonic/gin"
)

const credentialKey = "credential"

// CredentialSource is satisfied by session.Manager.
type CredentialSource interface {
	Credential(ctx context.Context) (session.Credential, error)
	RequireReady(ctx context.Context) (session.Credential, error)
}

// RequireSession rejects requests while no operator is logged in.
func RequireSession(src CredentialSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, err := src.Credential(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(credentialKey, cred)
		c.Next()
	}
}

// RequireReady additionally requires the opening balance step to be done,
// so no sale can be rung up outside a day-end session.
func RequireReady(src CredentialSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, err := src.RequireReady(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(credentialKey, cred)
		c.Next()
	}
}

// GetCredential returns the credential stored by RequireSession or
// RequireReady.
func GetCredential(c *gin.Context) (session.Credential, bool) {
	v, ok := c.Get(credentialKey)
	if !ok {
		return session.Credential{}, false
	}
	cred, ok := v.(session.Credential)
	return cred, ok
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperror.HTTPStatus(err), gin.H{
		"success": false,
		"message": apperror.Message(err),
		"error":   apperror.Code(err),
	})
}
