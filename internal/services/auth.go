package services

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/repos"
	"github.com/gramsight/gramsight-backend/internal/types"
	"github.com/gramsight/gramsight-backend/internal/utils"
)

const firebaseCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

// Identity is the verified claim set of an identity-provider ID token.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// AuthService verifies Firebase ID tokens and maps them onto application
// users.
type AuthService interface {
	VerifyIDToken(ctx context.Context, idToken string) (*Identity, error)
	ResolveUser(ctx context.Context, identity *Identity) (*types.User, error)
}

type authService struct {
	projectID  string
	httpClient *http.Client
	userRepo   repos.UserRepo
	log        *logger.Logger

	mu           sync.RWMutex
	certs        map[string]*rsa.PublicKey
	certsFetched time.Time
}

func NewAuthService(userRepo repos.UserRepo, log *logger.Logger) (AuthService, error) {
	serviceLog := log.With("service", "AuthService")
	projectID := utils.GetEnv("FIREBASE_PROJECT_ID", "", log)
	if strings.TrimSpace(projectID) == "" {
		return nil, fmt.Errorf("missing FIREBASE_PROJECT_ID")
	}
	return &authService{
		projectID:  projectID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userRepo:   userRepo,
		log:        serviceLog,
	}, nil
}

func (s *authService) VerifyIDToken(ctx context.Context, idToken string) (*Identity, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, fmt.Errorf("id token is empty")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	claims := jwt.MapClaims{}
	tok, err := parser.ParseWithClaims(idToken, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if strings.TrimSpace(kid) == "" {
			return nil, fmt.Errorf("missing kid")
		}
		return s.publicKey(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid id token: %w", err)
	}
	if tok == nil || !tok.Valid {
		return nil, fmt.Errorf("invalid id token")
	}

	iss, _ := claims["iss"].(string)
	if iss != "https://securetoken.google.com/"+s.projectID {
		return nil, fmt.Errorf("issuer mismatch: %q", iss)
	}
	aud, _ := claims["aud"].(string)
	if aud != s.projectID {
		return nil, fmt.Errorf("audience mismatch")
	}
	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return nil, fmt.Errorf("missing sub")
	}

	out := &Identity{UID: sub}
	out.Email, _ = claims["email"].(string)
	out.DisplayName, _ = claims["name"].(string)
	out.PhotoURL, _ = claims["picture"].(string)
	return out, nil
}

func (s *authService) ResolveUser(ctx context.Context, identity *Identity) (*types.User, error) {
	if identity == nil || identity.UID == "" {
		return nil, fmt.Errorf("identity is required")
	}
	return s.userRepo.UpsertByFirebaseUID(ctx, nil, &types.User{
		FirebaseUID: identity.UID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		PhotoURL:    identity.PhotoURL,
	})
}

func (s *authService) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	key, ok := s.certs[kid]
	fresh := time.Since(s.certsFetched) < time.Hour
	s.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}
	if err := s.refreshCerts(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok = s.certs[kid]
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

func (s *authService) refreshCerts(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, firebaseCertsURL, nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch signing certs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("failed to fetch signing certs: status %d", resp.StatusCode)
	}

	var pemCerts map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&pemCerts); err != nil {
		return fmt.Errorf("failed to decode signing certs: %w", err)
	}

	certs := make(map[string]*rsa.PublicKey, len(pemCerts))
	for kid, certPEM := range pemCerts {
		block, _ := pem.Decode([]byte(certPEM))
		if block == nil {
			continue
		}
		cert, parseErr := x509.ParseCertificate(block.Bytes)
		if parseErr != nil {
			continue
		}
		if pub, isRSA := cert.PublicKey.(*rsa.PublicKey); isRSA {
			certs[kid] = pub
		}
	}
	if len(certs) == 0 {
		return fmt.Errorf("no usable signing certs returned")
	}

	s.mu.Lock()
	s.certs = certs
	s.certsFetched = time.Now()
	s.mu.Unlock()
	return nil
}
