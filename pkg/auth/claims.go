package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vendibook/vendibook-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.Role
	Email  string
}

// AccessTokenClaims represents the typed JWT presented by callers. Role is the
// token audience class (user or service); admin rights are checked against
// user_roles, not the token.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   enums.Role `json:"role"`
	Email  string     `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// IsService reports whether the token was issued to an internal scheduler.
func (c *AccessTokenClaims) IsService() bool {
	return c != nil && c.Role == enums.RoleService
}

// Validate runs after the registered claims check during parsing.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("token has no user_id")
	}
	if c.Subject != c.UserID.String() {
		return errors.New("token subject does not match user_id")
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("token role %q is not recognised", c.Role)
	}
	return nil
}
