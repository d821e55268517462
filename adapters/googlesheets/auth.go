package googlesheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ServiceAccountKey is the content of a service account JSON key file
type ServiceAccountKey struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id"`
	PrivateKeyID            string `json:"private_key_id"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url"`
}

// NewWithJSONKeyFile creates a codec authenticated by a service account key
// file. An empty jsonPath falls back to GOOGLE_APPLICATION_CREDENTIALS.
func NewWithJSONKeyFile(ctx context.Context, config *Config, jsonPath string) (*Codec, error) {
	if jsonPath == "" {
		jsonPath = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
		if jsonPath == "" {
			return nil, fmt.Errorf("no JSON key file path provided and GOOGLE_APPLICATION_CREDENTIALS not set")
		}
	}

	jsonData, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON key file: %w", err)
	}
	return NewWithJSONKeyData(ctx, config, jsonData)
}

// NewWithJSONKeyData creates a codec from the content of a JSON key file
func NewWithJSONKeyData(ctx context.Context, config *Config, jsonData []byte) (*Codec, error) {
	creds, err := google.CredentialsFromJSON(ctx, jsonData, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	return New(ctx, config, option.WithCredentials(creds))
}

// NewWithServiceAccountKey creates a codec from a service account email and
// PEM private key. The key is only checked on the first request.
func NewWithServiceAccountKey(ctx context.Context, config *Config, email string, privateKey string) (*Codec, error) {
	tokenSource, err := createTokenSourceFromKey(ctx, &ServiceAccountKey{
		ClientEmail: email,
		PrivateKey:  privateKey,
	})
	if err != nil {
		return nil, err
	}
	return New(ctx, config, option.WithTokenSource(tokenSource))
}

// NewWithDefaultCredentials creates a codec using Application Default
// Credentials: GOOGLE_APPLICATION_CREDENTIALS, then gcloud, then the GCE
// metadata server.
func NewWithDefaultCredentials(ctx context.Context, config *Config) (*Codec, error) {
	tokenSource, err := google.DefaultTokenSource(ctx, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to get default token source: %w", err)
	}

	return New(ctx, config, option.WithTokenSource(tokenSource))
}

// ParseServiceAccountJSON parses a service account JSON file or data
func ParseServiceAccountJSON(jsonData []byte) (*ServiceAccountKey, error) {
	var key ServiceAccountKey
	if err := json.Unmarshal(jsonData, &key); err != nil {
		return nil, fmt.Errorf("failed to parse service account JSON: %w", err)
	}

	if key.Type != "service_account" {
		return nil, fmt.Errorf("invalid key type: %s (expected: service_account)", key.Type)
	}

	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, fmt.Errorf("missing required fields in service account key")
	}

	return &key, nil
}

// CreateTokenSource builds an oauth2.TokenSource from a key file path, JSON
// key data or a parsed *ServiceAccountKey. Pass the result to New with
// option.WithTokenSource.
func CreateTokenSource(ctx context.Context, credentials any) (oauth2.TokenSource, error) {
	switch cred := credentials.(type) {
	case string: // file path
		return createTokenSourceFromFile(ctx, cred)
	case []byte:
		return createTokenSourceFromJSON(ctx, cred)
	case *ServiceAccountKey:
		return createTokenSourceFromKey(ctx, cred)
	default:
		return nil, fmt.Errorf("unsupported credential type: %T", credentials)
	}
}

func createTokenSourceFromFile(ctx context.Context, path string) (oauth2.TokenSource, error) {
	jsonData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return createTokenSourceFromJSON(ctx, jsonData)
}

func createTokenSourceFromJSON(ctx context.Context, jsonData []byte) (oauth2.TokenSource, error) {
	creds, err := google.CredentialsFromJSON(ctx, jsonData, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return creds.TokenSource, nil
}

func createTokenSourceFromKey(ctx context.Context, key *ServiceAccountKey) (oauth2.TokenSource, error) {
	if key == nil {
		return nil, fmt.Errorf("service account key is nil")
	}
	jwtConfig := &jwt.Config{
		Email:      key.ClientEmail,
		PrivateKey: []byte(key.PrivateKey),
		Scopes:     []string{sheets.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}
	if key.TokenURI != "" {
		jwtConfig.TokenURL = key.TokenURI
	}
	return oauth2.ReuseTokenSource(nil, jwtConfig.TokenSource(ctx)), nil
}
