package auth

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/homesphere/homesphere/internal/model"
)

const (
	tokenIssuer   = "homesphere"
	tokenAudience = "homesphere-client"

	// DefaultTokenTTL applies to regular sessions.
	DefaultTokenTTL = 2 * time.Hour
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the signed claim set carried by a bearer token.
type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and validates stateless bearer tokens, and keeps the
// revocation set used by logout. The blacklist lives in process memory:
// revocations do not survive a restart and do not propagate across
// instances. Accounts on the unlimited allow-list receive tokens with no
// expiry; the list is an explicit configuration knob, not a hidden string
// match, so that its use is auditable.
type TokenService struct {
	secret    []byte
	ttl       time.Duration
	unlimited map[string]struct{}

	mu        sync.Mutex
	blacklist map[string]struct{}
}

func NewTokenService(secret []byte, ttl time.Duration, unlimitedEmails []string) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	unlimited := make(map[string]struct{}, len(unlimitedEmails))
	for _, e := range unlimitedEmails {
		if e = NormalizeEmail(e); e != "" {
			unlimited[e] = struct{}{}
		}
	}
	return &TokenService{
		secret:    secret,
		ttl:       ttl,
		unlimited: unlimited,
		blacklist: make(map[string]struct{}),
	}
}

// Issue signs a token for the user with the default TTL, or with no expiry
// for allow-listed accounts.
func (s *TokenService) Issue(user *model.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  strconv.FormatInt(user.ID, 10),
			Issuer:   tokenIssuer,
			Audience: jwt.ClaimStrings{tokenAudience},
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if !s.Unlimited(user.Email) {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks the signature and expiry and returns the decoded claims.
// It does not consult the blacklist; callers gate on IsBlacklisted
// separately.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Blacklist revokes a token before its natural expiry. Idempotent.
func (s *TokenService) Blacklist(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist[token] = struct{}{}
}

func (s *TokenService) IsBlacklisted(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blacklist[token]
	return ok
}

// Unlimited reports whether the email is allowed non-expiring tokens.
func (s *TokenService) Unlimited(email string) bool {
	_, ok := s.unlimited[NormalizeEmail(email)]
	return ok
}

// UnlimitedCount is used at startup to log that the exception is active.
func (s *TokenService) UnlimitedCount() int {
	return len(s.unlimited)
}
