// Package token issues and verifies the three token kinds the API uses:
// short-lived JWT access tokens, Redis-whitelisted refresh tokens, and
// single-use email verification tokens.
package token

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"grapevine/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	issuer   = "grapevine-api"
	audience = "grapevine-client"

	refreshKeyPrefix  = "refresh:"
	sessionsKeyPrefix = "sessions:"
	verifyKeyPrefix   = "verify:"
)

// Defaults, overridable per Service.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour
	DefaultVerifyTTL  = 15 * time.Minute
)

// Claims carried by a verified access token.
type Claims struct {
	UserID uint
	Role   string
	JTI    string
}

// Service issues and verifies tokens. Refresh and verification tokens are
// opaque and live in Redis; losing Redis invalidates all sessions, which is
// the intended failure mode.
type Service struct {
	rdb        *redis.Client
	secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	VerifyTTL  time.Duration
}

// NewService returns a token service backed by the given Redis client.
func NewService(rdb *redis.Client, secret string) *Service {
	return &Service{
		rdb:        rdb,
		secret:     secret,
		AccessTTL:  DefaultAccessTTL,
		RefreshTTL: DefaultRefreshTTL,
		VerifyTTL:  DefaultVerifyTTL,
	}
}

// IssueAccess creates a signed JWT access token for the user.
func (s *Service) IssueAccess(userID uint, role string) (string, error) {
	if s.secret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(userID), 10), // Subject (user ID as string)
		"role": role,
		"iss":  issuer,
		"aud":  audience,
		"exp":  now.Add(s.AccessTTL).Unix(),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"jti":  generateJTI(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(s.secret))
}

// generateJTI creates a unique JWT ID to prevent replay attacks
func generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}

// VerifyAccess parses and validates an access token, rejecting revoked JTIs.
func (s *Service) VerifyAccess(ctx context.Context, tokenString string) (*Claims, error) {
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	}, jwt.WithIssuer(issuer), jwt.WithAudience(audience))
	if err != nil || !tok.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	mapClaims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid token claims")
	}

	sub, ok := mapClaims["sub"].(string)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid token subject")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid user ID in token")
	}

	role, _ := mapClaims["role"].(string)
	jti, _ := mapClaims["jti"].(string)

	if jti != "" && s.rdb != nil {
		revoked, redisErr := s.rdb.Exists(ctx, "jwt:blacklist:"+jti).Result()
		if redisErr == nil && revoked > 0 {
			return nil, models.NewUnauthorizedError("Token has been revoked")
		}
	}

	return &Claims{UserID: uint(userID), Role: role, JTI: jti}, nil
}

// RevokeAccess blacklists an access token's JTI until it would have expired anyway.
func (s *Service) RevokeAccess(ctx context.Context, jti string) error {
	if s.rdb == nil || jti == "" {
		return nil
	}
	return s.rdb.Set(ctx, "jwt:blacklist:"+jti, "1", s.AccessTTL).Err()
}

// IssueRefresh creates an opaque refresh token, whitelists it in Redis and
// tracks it in the user's session set so all sessions can be revoked at once.
func (s *Service) IssueRefresh(ctx context.Context, userID uint) (string, error) {
	if s.rdb == nil {
		return "", models.NewDependencyError("session store unavailable", nil)
	}

	tok := uuid.New().String()
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, refreshKeyPrefix+tok, strconv.FormatUint(uint64(userID), 10), s.RefreshTTL)
	pipe.SAdd(ctx, sessionsKey(userID), tok)
	pipe.Expire(ctx, sessionsKey(userID), s.RefreshTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", models.NewDependencyError("failed to store refresh token", err)
	}
	return tok, nil
}

// VerifyRefresh resolves a refresh token back to its user ID.
func (s *Service) VerifyRefresh(ctx context.Context, tok string) (uint, error) {
	if s.rdb == nil {
		return 0, models.NewDependencyError("session store unavailable", nil)
	}

	raw, err := s.rdb.Get(ctx, refreshKeyPrefix+tok).Result()
	if err == redis.Nil {
		return 0, models.NewUnauthorizedError("Invalid or expired refresh token")
	}
	if err != nil {
		return 0, models.NewDependencyError("failed to look up refresh token", err)
	}

	userID, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, models.NewUnauthorizedError("Invalid or expired refresh token")
	}
	return uint(userID), nil
}

// RevokeRefresh removes a single refresh token.
func (s *Service) RevokeRefresh(ctx context.Context, userID uint, tok string) error {
	if s.rdb == nil {
		return nil
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, refreshKeyPrefix+tok)
	pipe.SRem(ctx, sessionsKey(userID), tok)
	_, err := pipe.Exec(ctx)
	return err
}

// RevokeAllForUser removes every refresh token the user holds. Account
// deletion calls this first and aborts if it fails, so a deleted user can
// never keep a live session.
func (s *Service) RevokeAllForUser(ctx context.Context, userID uint) error {
	if s.rdb == nil {
		return models.NewDependencyError("session store unavailable", nil)
	}

	toks, err := s.rdb.SMembers(ctx, sessionsKey(userID)).Result()
	if err != nil {
		return models.NewDependencyError("failed to list user sessions", err)
	}

	keys := make([]string, 0, len(toks)+1)
	for _, t := range toks {
		keys = append(keys, refreshKeyPrefix+t)
	}
	keys = append(keys, sessionsKey(userID))

	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return models.NewDependencyError("failed to revoke user sessions", err)
	}
	return nil
}

// IssueVerification creates a single-use email verification token.
func (s *Service) IssueVerification(ctx context.Context, userID uint) (string, error) {
	if s.rdb == nil {
		return "", models.NewDependencyError("verification store unavailable", nil)
	}

	tok := uuid.New().String()
	key := verifyKey(userID, tok)
	if err := s.rdb.Set(ctx, key, "1", s.VerifyTTL).Err(); err != nil {
		return "", models.NewDependencyError("failed to store verification token", err)
	}
	return tok, nil
}

// ConsumeVerification atomically checks and deletes a verification token.
// A token can only ever be consumed once.
func (s *Service) ConsumeVerification(ctx context.Context, userID uint, tok string) (bool, error) {
	if s.rdb == nil {
		return false, models.NewDependencyError("verification store unavailable", nil)
	}

	_, err := s.rdb.GetDel(ctx, verifyKey(userID, tok)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, models.NewDependencyError("failed to consume verification token", err)
	}
	return true, nil
}

func sessionsKey(userID uint) string {
	return sessionsKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

func verifyKey(userID uint, tok string) string {
	return fmt.Sprintf("%s%d:%s", verifyKeyPrefix, userID, tok)
}
