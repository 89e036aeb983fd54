package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleInstructor is the only role allowed through InstructorAuth.
const RoleInstructor = "instructor"

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	AccessExp    time.Time `json:"access_expires_at"`
	RefreshExp   time.Time `json:"refresh_expires_at"`
}

// Identity is who a token is issued for.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Role    string
}

// Claims represents JWT payload. The subject lives in the registered claims.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Config carries signing settings. RefreshTTL applies to remembered sessions,
// SessionTTL to browser-session logins.
type Config struct {
	Issuer     string
	SigningKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	SessionTTL time.Duration
}

// Issue issues signed access and refresh tokens.
func (c Config) Issue(id Identity, remember bool) (TokenPair, error) {
	if id.Subject == "" {
		return TokenPair{}, errors.New("subject is required")
	}
	now := time.Now()
	refreshTTL := c.SessionTTL
	if remember {
		refreshTTL = c.RefreshTTL
	}
	accessExp := now.Add(c.AccessTTL)
	refreshExp := now.Add(refreshTTL)

	accessToken, err := c.sign(id, now, accessExp)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := c.sign(id, now, refreshExp)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func (c Config) sign(id Identity, issued, exp time.Time) (string, error) {
	claims := Claims{
		Email: id.Email,
		Name:  id.Name,
		Role:  id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.Issuer,
			Subject:   id.Subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(issued),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.SigningKey))
}

// Parse validates a token and returns claims.
func (c Config) Parse(tokenStr string) (Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if c.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.Issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(c.SigningKey), nil
	}, opts...)
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	return *claims, nil
}
