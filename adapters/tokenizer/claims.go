package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims are the standard claims for session access tokens
type AccessClaims struct {
	jwt.RegisteredClaims
}
