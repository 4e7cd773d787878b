package keycloak

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/leozw/ws-billing-resolver/internal/config"
	"go.uber.org/zap"
)

// minRefreshInterval bounds how often an unknown kid may trigger a JWKS fetch.
const minRefreshInterval = 30 * time.Second

type Client struct {
	config     config.KeycloakConfig
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	lastFetch time.Time
}

func NewClient(cfg config.KeycloakConfig, logger *zap.Logger) *Client {
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		now:        time.Now,
	}
}

// ValidateToken verifies an RS256 token against the realm signing keys.
func (c *Client) ValidateToken(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		return c.publicKey(ctx, kid)
	}, jwt.WithExpirationRequired())
	if err != nil {
		c.logger.Debug("Failed to parse token", zap.Error(err))
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims format")
	}

	return claims, nil
}

// publicKey returns the cached key for kid, refreshing the JWKS once when it is
// unknown and the last refresh is older than minRefreshInterval.
func (c *Client) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key := c.cached(kid); key != nil {
		return key, nil
	}

	if !c.claimRefresh() {
		return nil, fmt.Errorf("no signing key for kid %q", kid)
	}

	if err := c.fetchKeys(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch public key: %w", err)
	}

	if key := c.cached(kid); key != nil {
		return key, nil
	}
	return nil, fmt.Errorf("no signing key for kid %q", kid)
}

func (c *Client) cached(kid string) *rsa.PublicKey {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if key, ok := c.keys[kid]; ok {
		return key
	}
	// Tokens without kid use the first key
	if kid == "" {
		for _, key := range c.keys {
			return key
		}
	}
	return nil
}

// claimRefresh records a refresh attempt, false while the previous one is too recent.
func (c *Client) claimRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !c.lastFetch.IsZero() && now.Sub(c.lastFetch) < minRefreshInterval {
		return false
	}
	c.lastFetch = now
	return true
}

func (c *Client) fetchKeys(ctx context.Context) error {
	url := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", c.config.URL, c.config.Realm)
	c.logger.Info("Fetching JWKS", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var jwks struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
			Alg string `json:"alg"`
			Use string `json:"use"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("failed to decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, key := range jwks.Keys {
		if key.Kty != "RSA" || key.Use != "sig" {
			continue
		}
		publicKey, err := parseJWK(key.N, key.E)
		if err != nil {
			c.logger.Warn("Failed to parse key", zap.String("kid", key.Kid), zap.Error(err))
			continue
		}
		keys[key.Kid] = publicKey
	}

	if len(keys) == 0 {
		return fmt.Errorf("no suitable RSA signing key found")
	}

	c.mu.Lock()
	c.keys = keys
	c.mu.Unlock()

	c.logger.Info("Loaded realm signing keys", zap.Int("count", len(keys)))
	return nil
}

func parseJWK(n, e string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("failed to decode n: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("failed to decode e: %w", err)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
