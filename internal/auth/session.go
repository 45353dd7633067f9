package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "kharcha_session"

// SessionManager issues and verifies HS256 session tokens.
type SessionManager struct {
	secretKey []byte
	ttl       time.Duration
	secure    bool
	now       func() time.Time
}

// Claims are the session token's claims.
type Claims struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Provider string `json:"provider,omitempty"`
	jwt.RegisteredClaims
}

func NewSessionManager(secretKey string, ttl time.Duration, secureCookies bool) *SessionManager {
	return &SessionManager{secretKey: []byte(secretKey), ttl: ttl, secure: secureCookies, now: time.Now}
}

// Issue signs a token for id.
func (m *SessionManager) Issue(id Identity) (string, error) {
	if id.Email == "" {
		return "", errors.New("issue session: empty email")
	}
	now := m.now()
	claims := &Claims{
		Email:    id.Email,
		Name:     id.DisplayName,
		Provider: id.Provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns its identity.
func (m *SessionManager) Parse(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Email == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{Email: claims.Email, DisplayName: claims.Name, Provider: claims.Provider}, nil
}

// SetCookie issues a token for id and writes it as an HttpOnly cookie.
func (m *SessionManager) SetCookie(w http.ResponseWriter, id Identity) error {
	token, err := m.Issue(id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie expires the session cookie.
func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest returns the identity in the request's session cookie.
func (m *SessionManager) FromRequest(r *http.Request) (Identity, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	return m.Parse(c.Value)
}
