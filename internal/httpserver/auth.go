package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"aurum-storefront/internal/domain"
)

const claimsKey = "session_claims"

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// requireSession rejects requests without a valid bearer token.
func requireSession(sessions SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		claims, ok := sessions.Verify(token)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid Session"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// optionalSession attaches claims when a valid token is present and ignores it otherwise.
func optionalSession(sessions SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if claims, ok := sessions.Verify(token); ok {
				c.Set(claimsKey, claims)
			}
		}
		c.Next()
	}
}

func sessionClaims(c *gin.Context) (domain.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return domain.Claims{}, false
	}
	claims, ok := v.(domain.Claims)
	return claims, ok
}

// customerID is only called behind requireSession.
func customerID(c *gin.Context) string {
	claims, _ := sessionClaims(c)
	return claims.CustomerID
}
