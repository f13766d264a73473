package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens
var ErrInvalidToken = errors.New("invalid or expired token")

// Session is the verified content of a bearer token
type Session struct {
	UserID  int64
	Name    string
	Email   string
	IsAdmin bool
}

// SessionVerifier turns a bearer credential into a session
type SessionVerifier interface {
	Verify(token string) (*Session, error)
}

// Claims is the token payload issued by the account service
type Claims struct {
	ID      int64  `json:"id"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens signed with a shared secret
type JWTVerifier struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewJWTVerifier creates a verifier; an empty issuer disables the issuer check
func NewJWTVerifier(secret []byte, issuer string) *JWTVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &JWTVerifier{
		secret: secret,
		issuer: issuer,
		parser: jwt.NewParser(opts...),
	}
}

// Verify parses and validates a token
func (v *JWTVerifier) Verify(token string) (*Session, error) {
	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.ID == 0 {
		return nil, ErrInvalidToken
	}

	return &Session{
		UserID:  claims.ID,
		Name:    claims.Name,
		Email:   claims.Email,
		IsAdmin: claims.IsAdmin,
	}, nil
}

// Issue signs a token for the session, valid for ttl
func (v *JWTVerifier) Issue(s Session, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:      s.UserID,
		Name:    s.Name,
		Email:   s.Email,
		IsAdmin: s.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
