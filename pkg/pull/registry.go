package pull

import (
	"github.com/google/go-containerregistry/pkg/authn"
)

type RegistryConfig struct {
	// Remote registry username
	Username string `flag:",omitempty"`
	// Remote registry password
	Password string `flag:",omitempty,secret"`
}

func (c *RegistryConfig) Authenticator() authn.Authenticator {
	if c.Username != "" {
		return &authn.Basic{
			Username: c.Username,
			Password: c.Password,
		}
	}
	return authn.Anonymous
}
