package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenIssuer   = "femcircle-api"
	TokenAudience = "femcircle-client"
)

var (
	// ErrNoSessionToken means neither the session cookie nor a bearer header was sent.
	ErrNoSessionToken = errors.New("no session token")
	// ErrInvalidSessionToken covers bad signatures, expiry and malformed claims.
	ErrInvalidSessionToken = errors.New("invalid or expired session token")
)

// SessionClaims is the identity carried by a signed session token.
type SessionClaims struct {
	UserID    uint
	Username  string
	FullName  string
	IsAdmin   bool
	JTI       string
	ExpiresAt time.Time
}

// IssueSessionToken signs a session for the given member.
func IssueSessionToken(secret string, claims SessionClaims, ttl time.Duration) (string, *SessionClaims, error) {
	if secret == "" {
		return "", nil, fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims.JTI = fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8])
	claims.ExpiresAt = now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       strconv.FormatUint(uint64(claims.UserID), 10),
		"username":  claims.Username,
		"full_name": claims.FullName,
		"admin":     claims.IsAdmin,
		"iss":       TokenIssuer,
		"aud":       TokenAudience,
		"exp":       claims.ExpiresAt.Unix(),
		"iat":       now.Unix(),
		"nbf":       now.Unix(),
		"jti":       claims.JTI,
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return signed, &claims, nil
}

// ParseSessionToken validates a token and returns its claims.
func ParseSessionToken(secret, tokenString string) (*SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(TokenIssuer), jwt.WithAudience(TokenAudience), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidSessionToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidSessionToken
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidSessionToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, ErrInvalidSessionToken
	}

	out := &SessionClaims{UserID: uint(userID)}
	out.Username, _ = claims["username"].(string)
	out.FullName, _ = claims["full_name"].(string)
	out.IsAdmin, _ = claims["admin"].(bool)
	out.JTI, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if out.Username == "" {
		return nil, ErrInvalidSessionToken
	}
	return out, nil
}

// ExtractSessionToken reads the session cookie, falling back to a bearer header.
func ExtractSessionToken(c *fiber.Ctx, cookieName string) (string, error) {
	if cookieName != "" {
		if v := c.Cookies(cookieName); v != "" {
			return v, nil
		}
	}

	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", ErrNoSessionToken
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidSessionToken
	}
	return parts[1], nil
}
