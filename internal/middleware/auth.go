package middleware

import (
	"net/http"
	"strings"

	"cortecaja/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ClaimsKey = "claims"
)

// JWTClaims are the custom claims embedded in every access token. The identity
// layer is external: tokens arrive already minted, carrying the set of
// negocios the caller may operate. The engine itself performs no further
// authorization beyond this membership check.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Negocios []string `json:"negocios"`
	jwt.RegisteredClaims
}

// JWTAuth validates the bearer token and stores the claims in the context.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token invalido o expirado"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
// Returns nil when the auth middleware did not run.
func GetClaims(c *gin.Context) *JWTClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*JWTClaims)
	return claims
}

// NegocioAutorizado reports whether the token covers the given negocio.
// An empty negocios claim means the token is unscoped (back-office callers).
func NegocioAutorizado(claims *JWTClaims, negocioID string) bool {
	if claims == nil {
		return false
	}
	if len(claims.Negocios) == 0 {
		return true
	}
	for _, n := range claims.Negocios {
		if n == negocioID {
			return true
		}
	}
	return false
}
