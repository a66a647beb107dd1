package model

import "github.com/golang-jwt/jwt"

// UserClaims are the JWT claims issued by the surrounding product for its own
// end users; the publishing API only needs the subject identity.
type UserClaims struct {
	UserName string `json:"user_name"`
	jwt.StandardClaims
}
