package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration wraps every load and validation failure.
var ErrConfiguration = errors.New("configuration error")

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	for _, id := range c.Telegram.OwnerIDs {
		if id <= 0 {
			return fmt.Errorf("%w: owner id %d must be positive", ErrConfiguration, id)
		}
	}
	for _, name := range c.Plugins.Enabled {
		for _, disabled := range c.Plugins.Disabled {
			if name == disabled {
				return fmt.Errorf("%w: plugin %q is both enabled and disabled", ErrConfiguration, name)
			}
		}
	}
	return nil
}
