package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/api"
	"github.com/rs/zerolog"
)

// FeedCredentials are the upstream market-feed API credentials.
type FeedCredentials struct {
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
}

// Config holds Vault connection settings.
type Config struct {
	Enabled    bool
	Address    string
	Token      string
	MountPath  string
	SecretPath string
	TLSEnabled bool
	CACert     string
}

// Client wraps the HashiCorp Vault client for feed-credential storage.
// When Vault is disabled the client degrades to an in-process cache so
// local development works without a Vault server.
type Client struct {
	client *api.Client
	config Config
	log    zerolog.Logger

	mu    sync.RWMutex
	cache map[string]*FeedCredentials // name -> credentials
}

// NewClient creates a Vault client.
func NewClient(cfg Config, log zerolog.Logger) (*Client, error) {
	c := &Client{
		config: cfg,
		log:    log.With().Str("component", "vault").Logger(),
		cache:  make(map[string]*FeedCredentials),
	}
	if !cfg.Enabled {
		c.log.Info().Msg("Vault disabled, using local credential cache")
		return c, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		tlsConfig := &api.TLSConfig{CACert: cfg.CACert}
		if err := vaultConfig.ConfigureTLS(tlsConfig); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	c.client = client
	c.log.Info().Str("address", cfg.Address).Msg("Connected to Vault")
	return c, nil
}

// StoreCredentials stores feed credentials under the given name.
func (c *Client) StoreCredentials(ctx context.Context, name string, creds FeedCredentials) error {
	if !c.config.Enabled {
		c.mu.Lock()
		c.cache[name] = &creds
		c.mu.Unlock()
		return nil
	}

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"api_key":    creds.APIKey,
			"secret_key": creds.SecretKey,
		},
	}

	_, err := c.client.Logical().WriteWithContext(ctx, c.secretPath(name), secretData)
	if err != nil {
		return fmt.Errorf("failed to store credentials in vault: %w", err)
	}

	c.mu.Lock()
	c.cache[name] = &creds
	c.mu.Unlock()
	return nil
}

// GetCredentials retrieves feed credentials by name. The local cache
// answers first; Vault backs it up.
func (c *Client) GetCredentials(ctx context.Context, name string) (*FeedCredentials, error) {
	c.mu.RLock()
	if cached, ok := c.cache[name]; ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	if !c.config.Enabled {
		return nil, fmt.Errorf("credentials %q not found and vault is disabled", name)
	}

	secret, err := c.client.Logical().ReadWithContext(ctx, c.secretPath(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("credentials %q not found", name)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format for %q", name)
	}

	creds := &FeedCredentials{
		APIKey:    getString(data, "api_key"),
		SecretKey: getString(data, "secret_key"),
	}

	c.mu.Lock()
	c.cache[name] = creds
	c.mu.Unlock()
	return creds, nil
}

// DeleteCredentials removes stored credentials.
func (c *Client) DeleteCredentials(ctx context.Context, name string) error {
	c.mu.Lock()
	delete(c.cache, name)
	c.mu.Unlock()

	if !c.config.Enabled {
		return nil
	}
	if _, err := c.client.Logical().DeleteWithContext(ctx, c.secretPath(name)); err != nil {
		return fmt.Errorf("failed to delete credentials from vault: %w", err)
	}
	return nil
}

// secretPath builds the KV v2 data path for a credential name.
func (c *Client) secretPath(name string) string {
	return fmt.Sprintf("%s/data/%s/%s", c.config.MountPath, c.config.SecretPath, name)
}

func getString(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
