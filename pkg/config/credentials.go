package config

import "context"

// Credentials carry the username/apiKey pair a server may require. The
// scheduler requests them at dispatch time and never persists them.
type Credentials struct {
	Username string
	APIKey   string
}

// IsZero reports whether no credentials are set (anonymous access).
func (c Credentials) IsZero() bool {
	return c.Username == "" && c.APIKey == ""
}

// CredentialProvider supplies credentials on demand, keeping storage and
// retrieval (env, keyring, vault) outside the scheduling core.
type CredentialProvider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticCredentials is a CredentialProvider over fixed values.
type StaticCredentials struct {
	Username string
	APIKey   string
}

func (s StaticCredentials) Credentials(ctx context.Context) (Credentials, error) {
	return Credentials{Username: s.Username, APIKey: s.APIKey}, nil
}

// Anonymous is a CredentialProvider for servers that require none.
var Anonymous CredentialProvider = StaticCredentials{}
