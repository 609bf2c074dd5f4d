package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/kube-rca/alert-analyzer/internal/config"
	"golang.org/x/crypto/bcrypt"
)

const apiKeyHeader = "X-API-Key"

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrMisconfigured = errors.New("auth config invalid")
)

// IngressAuthenticator - 이벤트 수신 엔드포인트 인증
//
// 설정된 방식 중 하나라도 통과하면 허용:
//   - X-API-Key: bcrypt 해시와 비교
//   - Bearer JWT (HS256, INGEST_JWT_SECRET)
//   - Bearer OIDC ID token (INGEST_OIDC_ISSUER / INGEST_OIDC_AUDIENCE)
//
// 아무것도 설정되지 않으면 인증 없이 허용
type IngressAuthenticator struct {
	jwtSecret  []byte
	verifier   *oidc.IDTokenVerifier
	apiKeyHash []byte
}

// NewIngressAuthenticator - 설정으로 인증기 생성 (OIDC는 discovery 요청 발생)
func NewIngressAuthenticator(ctx context.Context, cfg config.IngestConfig) (*IngressAuthenticator, error) {
	a := &IngressAuthenticator{}
	if cfg.JWTSecret != "" {
		a.jwtSecret = []byte(cfg.JWTSecret)
	}
	if cfg.APIKeyHash != "" {
		if _, err := bcrypt.Cost([]byte(cfg.APIKeyHash)); err != nil {
			return nil, fmt.Errorf("%w: INGEST_API_KEY_HASH is not a bcrypt hash", ErrMisconfigured)
		}
		a.apiKeyHash = []byte(cfg.APIKeyHash)
	}
	if cfg.OIDCIssuer != "" {
		if cfg.OIDCAudience == "" {
			return nil, fmt.Errorf("%w: INGEST_OIDC_AUDIENCE is required with INGEST_OIDC_ISSUER", ErrMisconfigured)
		}
		provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
		if err != nil {
			return nil, fmt.Errorf("oidc discovery: %w", err)
		}
		a.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.OIDCAudience})
	}
	return a, nil
}

// WithOIDCVerifier - 이미 구성된 verifier 사용 (정적 키 등)
func (a *IngressAuthenticator) WithOIDCVerifier(v *oidc.IDTokenVerifier) *IngressAuthenticator {
	a.verifier = v
	return a
}

// Enabled - 인증 방식이 하나라도 설정되어 있는지
func (a *IngressAuthenticator) Enabled() bool {
	return a != nil && (len(a.jwtSecret) > 0 || a.verifier != nil || len(a.apiKeyHash) > 0)
}

// Authenticate - 요청 헤더 검증, 성공 시 principal 반환
func (a *IngressAuthenticator) Authenticate(ctx context.Context, header http.Header) (string, error) {
	if !a.Enabled() {
		return "anonymous", nil
	}

	if key := strings.TrimSpace(header.Get(apiKeyHeader)); key != "" && len(a.apiKeyHash) > 0 {
		if bcrypt.CompareHashAndPassword(a.apiKeyHash, []byte(key)) == nil {
			return "api-key", nil
		}
		return "", ErrUnauthorized
	}

	token := bearerToken(header.Get("Authorization"))
	if token == "" {
		return "", ErrUnauthorized
	}

	if len(a.jwtSecret) > 0 {
		if subject, err := a.parseHS256(token); err == nil {
			return subject, nil
		}
	}
	if a.verifier != nil {
		idToken, err := a.verifier.Verify(ctx, token)
		if err == nil {
			return idToken.Subject, nil
		}
	}
	return "", ErrUnauthorized
}

func (a *IngressAuthenticator) parseHS256(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return a.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrUnauthorized
	}
	if claims.Subject == "" {
		return "token", nil
	}
	return claims.Subject, nil
}

func bearerToken(value string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// HashAPIKey - INGEST_API_KEY_HASH에 넣을 bcrypt 해시 생성
func HashAPIKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("api key is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
