package auth

import (
	"time"

	"campuseval/config"
	domainerrors "campuseval/internal/domain/errors"
	"campuseval/internal/domain/service"
	"campuseval/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenClaims is the wire form of service.Claims.
type tokenClaims struct {
	SessionID string            `json:"sid"`
	Type      service.TokenType `json:"type"`
	jwt.RegisteredClaims
}

// jwtService signs HS256 tokens. Access and refresh tokens use separate keys
// so one can never be replayed as the other.
type jwtService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewJWTService is the constructor for jwtService.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	return newJWTService(cfg, time.Now)
}

func newJWTService(cfg *config.Config, now func() time.Time) (*jwtService, error) {
	if cfg.SecretKey.Access == "" || cfg.SecretKey.Refresh == "" {
		return nil, errors.New("jwt secrets must be provided")
	}
	if cfg.SecretKey.Access == cfg.SecretKey.Refresh {
		return nil, errors.New("access and refresh secrets must differ")
	}

	return &jwtService{
		accessSecret:  []byte(cfg.SecretKey.Access),
		refreshSecret: []byte(cfg.SecretKey.Refresh),
		accessTTL:     cfg.Auth.AccessTokenTTL,
		refreshTTL:    cfg.Auth.RefreshTokenTTL,
		issuer:        cfg.Env.ServiceName,
		now:           now,
	}, nil
}

func (s *jwtService) GenerateTokens(identityID, sessionID uuid.UUID) (*service.TokenPair, error) {
	access, accessExp, err := s.GenerateAccessToken(identityID, sessionID)
	if err != nil {
		return nil, err
	}

	refresh, refreshExp, err := s.sign(identityID, sessionID, service.TokenTypeRefresh, s.refreshTTL, s.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &service.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *jwtService) GenerateAccessToken(identityID, sessionID uuid.UUID) (string, time.Time, error) {
	return s.sign(identityID, sessionID, service.TokenTypeAccess, s.accessTTL, s.accessSecret)
}

func (s *jwtService) ValidateToken(tokenString string, expected service.TokenType) (*service.Claims, error) {
	secret := s.accessSecret
	if expected == service.TokenTypeRefresh {
		secret = s.refreshSecret
	}

	parsed := &tokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, parsed, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, domainerrors.ErrUnauthorized.WrapMessage(err.Error())
	}

	if parsed.Type != expected {
		return nil, domainerrors.ErrUnauthorized.WrapMessage("unexpected token type " + string(parsed.Type))
	}

	identityID, err := uuid.Parse(parsed.Subject)
	if err != nil {
		return nil, domainerrors.ErrUnauthorized.WrapMessage("malformed subject")
	}
	sessionID, err := uuid.Parse(parsed.SessionID)
	if err != nil {
		return nil, domainerrors.ErrUnauthorized.WrapMessage("malformed session id")
	}

	return &service.Claims{
		IdentityID:       identityID,
		SessionID:        sessionID,
		Type:             parsed.Type,
		RegisteredClaims: parsed.RegisteredClaims,
	}, nil
}

func (s *jwtService) HashToken(token string) string {
	return HashSecret(token)
}

func (s *jwtService) sign(identityID, sessionID uuid.UUID, tokenType service.TokenType, ttl time.Duration, secret []byte) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(ttl)

	claims := tokenClaims{
		SessionID: sessionID.String(),
		Type:      tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   identityID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}

	return signed, expiresAt, nil
}
