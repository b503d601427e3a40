// File: internal/services/identity/firebase.go
package identity

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/altracloud/altrachat/internal/domain"
)

// GoogleCertsURL publishes the x509 certificates Firebase signs ID tokens with.
const GoogleCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

const defaultCertsTTL = time.Hour

// FirebaseClaims are the ID token claims we read.
type FirebaseClaims struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// FirebaseProvider verifies Firebase ID tokens obtained by the browser's
// Google sign-in and publishes the resulting identity on the watcher.
type FirebaseProvider struct {
	projectID  string
	certsURL   string
	httpClient *http.Client
	watcher    *Watcher
	logger     Logger
	now        func() time.Time

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	keysUntil time.Time
}

type FirebaseConfig struct {
	ProjectID string
	CertsURL  string
	Timeout   time.Duration
	Now       func() time.Time
}

func NewFirebaseProvider(cfg FirebaseConfig, watcher *Watcher, logger Logger) (*FirebaseProvider, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("firebase project id is required")
	}
	if cfg.CertsURL == "" {
		cfg.CertsURL = GoogleCertsURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &FirebaseProvider{
		projectID:  cfg.ProjectID,
		certsURL:   cfg.CertsURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		watcher:    watcher,
		logger:     logger,
		now:        cfg.Now,
	}, nil
}

// SignIn verifies idToken and returns the identity it asserts.
func (p *FirebaseProvider) SignIn(ctx context.Context, idToken string) (domain.UserIdentity, error) {
	if strings.TrimSpace(idToken) == "" {
		return domain.UserIdentity{}, fmt.Errorf("%w: empty token", ErrInvalidCredential)
	}

	var claims FirebaseClaims
	_, err := jwt.ParseWithClaims(idToken, &claims,
		func(token *jwt.Token) (interface{}, error) {
			kid, _ := token.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("token has no key id")
			}
			return p.publicKey(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(p.projectID),
		jwt.WithIssuer("https://securetoken.google.com/"+p.projectID),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		p.logger.Warn("id token rejected", "error", err)
		return domain.UserIdentity{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if claims.Subject == "" {
		return domain.UserIdentity{}, fmt.Errorf("%w: token has no subject", ErrInvalidCredential)
	}

	identity := domain.UserIdentity{
		UID:         claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
		AvatarURL:   claims.Picture,
	}
	p.logger.Info("user signed in", "uid", identity.UID)
	if p.watcher != nil {
		p.watcher.Publish(Event{UID: identity.UID, Identity: &identity})
	}
	return identity, nil
}

// SignOut announces that the user left. The browser signs out of Firebase itself.
func (p *FirebaseProvider) SignOut(_ context.Context, identity domain.UserIdentity) error {
	if err := identity.IsValid(); err != nil {
		return err
	}
	p.logger.Info("user signed out", "uid", identity.UID)
	if p.watcher != nil {
		p.watcher.Publish(Event{UID: identity.UID})
	}
	return nil
}

func (p *FirebaseProvider) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if key, ok := p.keys[kid]; ok && p.now().Before(p.keysUntil) {
		return key, nil
	}

	keys, until, err := p.fetchKeys(ctx)
	if err != nil {
		p.logger.Error("failed to fetch signing certificates", "error", err)
		return nil, err
	}
	p.keys = keys
	p.keysUntil = until

	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return key, nil
}

func (p *FirebaseProvider) fetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.certsURL, nil)
	if err != nil {
		return nil, time.Time{}, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("fetch certificates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, time.Time{}, fmt.Errorf("fetch certificates: status %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&certs); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode certificates: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, certPEM := range certs {
		block, _ := pem.Decode([]byte(certPEM))
		if block == nil {
			return nil, time.Time{}, fmt.Errorf("certificate %s is not PEM", kid)
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("parse certificate %s: %w", kid, err)
		}
		rsaKey, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return nil, time.Time{}, fmt.Errorf("certificate %s does not hold an RSA key", kid)
		}
		keys[kid] = rsaKey
	}

	return keys, p.now().Add(maxAge(resp.Header.Get("Cache-Control"))), nil
}

// maxAge reads max-age from a Cache-Control header.
func maxAge(header string) time.Duration {
	for _, directive := range strings.Split(header, ",") {
		name, value, found := strings.Cut(strings.TrimSpace(directive), "=")
		if !found || !strings.EqualFold(name, "max-age") {
			continue
		}
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultCertsTTL
}
