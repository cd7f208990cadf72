package authbroker

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidOperatorToken is returned when an approval-decision JWT
// fails signature or claim validation.
var ErrInvalidOperatorToken = errors.New("authbroker: invalid operator token")

// operatorClaims identifies the human who decided an Approval.
type operatorClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// OperatorIdentity signs and verifies short-lived tokens that attribute
// a decision to a specific operator. The sentryctl approve commands do
// not use it: they record `decided_by` as the fixed string "operator".
type OperatorIdentity struct {
	secret []byte
	ttl    time.Duration
}

// NewOperatorIdentity builds an OperatorIdentity. An empty secret
// disables signing; callers should treat that as "no operator auth
// configured" and fall back to a plain string for decided_by.
func NewOperatorIdentity(secret string, ttl time.Duration) *OperatorIdentity {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &OperatorIdentity{secret: []byte(secret), ttl: ttl}
}

func (o *OperatorIdentity) Enabled() bool { return len(o.secret) > 0 }

// Issue mints a token asserting email as the deciding operator.
func (o *OperatorIdentity) Issue(email string) (string, error) {
	if !o.Enabled() {
		return "", ErrInvalidOperatorToken
	}
	claims := operatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(o.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email: email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(o.secret)
}

// Verify validates token and returns the operator's email.
func (o *OperatorIdentity) Verify(token string) (string, error) {
	if !o.Enabled() {
		return "", ErrInvalidOperatorToken
	}
	claims := &operatorClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return o.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidOperatorToken
	}
	return claims.Email, nil
}
