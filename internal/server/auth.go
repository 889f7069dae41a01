package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	authClaimsContextKey = "auth_claims"
	bearerPrefix         = "Bearer "
)

// bearerAuth validates the Authorization header carries an HS256 token signed
// with the shared client key, issued by the expected issuer and not expired.
func bearerAuth(signingKey []byte, issuer string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing bearer token"))
			return
		}
		raw := strings.TrimPrefix(header, bearerPrefix)

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(raw, claims,
			func(_ *jwt.Token) (interface{}, error) { return signingKey, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		)
		if err != nil || !token.Valid {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "invalid token"))
			return
		}

		ctx.Set(authClaimsContextKey, claims)
		ctx.Next()
	}
}
