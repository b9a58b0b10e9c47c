// Package token issues HS256 tokens for configured users and resolves the
// caller's identity from a bearer token.
package token

import (
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dgrijalva/jwt-go"
	"github.com/ternarybob/arbor"
	"golang.org/x/crypto/bcrypt"

	"placefinder/src/common"
	"placefinder/src/types"
)

const defaultTTL = time.Hour

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Issuer checks credentials against bcrypt hashes and signs tokens.
type Issuer struct {
	signingKey []byte
	ttl        time.Duration
	users      map[string]string
	now        func() time.Time
	logger     arbor.ILogger
}

func NewIssuer(config common.AuthConfig, logger arbor.ILogger) *Issuer {
	users := make(map[string]string, len(config.Users))
	for name, hash := range config.Users {
		users[name] = hash
	}
	return &Issuer{
		signingKey: []byte(config.SigningKey),
		ttl:        common.ParseDuration(config.TokenTTL, defaultTTL),
		users:      users,
		now:        time.Now,
		logger:     logger,
	}
}

// Issue returns a signed token for valid credentials.
func (i *Issuer) Issue(creds Credentials) (string, error) {
	if len(i.signingKey) == 0 {
		return "", common.Configuration("auth signing key is not configured")
	}
	if creds.Username == "" || creds.Password == "" {
		return "", common.ClientInput("username and password are required")
	}

	storedPassword, ok := i.users[creds.Username]
	if !ok || !checkPasswordHash(creds.Password, storedPassword) {
		i.logger.Debug().Str("username", creds.Username).Msg("Rejected credentials")
		return "", common.AuthRequired()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": creds.Username,
		"iat":      i.now().Unix(),
		"exp":      i.now().Add(i.ttl).Unix(),
	})

	tokenString, err := token.SignedString(i.signingKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return tokenString, nil
}

// Identify returns the caller named by the request's bearer token, or nil
// when the header is absent or the token does not verify.
func (i *Issuer) Identify(r *http.Request) *types.Identity {
	if len(i.signingKey) == 0 {
		return nil
	}

	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	token, err := parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return i.signingKey, nil
	})
	if err != nil || !token.Valid {
		i.logger.Debug().Err(err).Msg("Ignoring invalid bearer token")
		return nil
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	username, _ := claims["username"].(string)
	if username == "" {
		return nil
	}
	return &types.Identity{UserID: username}
}

// HashPassword produces a bcrypt hash for the auth.users table.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}
	return string(hash), nil
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
