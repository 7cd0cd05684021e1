package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// SelectorConfig is the on-disk selector profile. Each list is ordered by
// priority; entries use "selector" or "selector@attr". Omitted fields keep the
// built-in candidates.
//
//	name:
//	  - h1.product-title
//	price:
//	  - .product-price .price
//	  - "[data-price]@data-price"
type SelectorConfig struct {
	Name        []string `mapstructure:"name"`
	Price       []string `mapstructure:"price"`
	Image       []string `mapstructure:"image"`
	Description []string `mapstructure:"description"`
}

// LoadSelectors reads a selector profile. The format (yaml, json, toml) is
// taken from the file extension. An empty path returns an empty profile.
func LoadSelectors(path string) (*SelectorConfig, error) {
	var sc SelectorConfig
	if path == "" {
		return &sc, nil
	}

	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading selectors file: %w", err)
	}
	if err := v.Unmarshal(&sc); err != nil {
		return nil, fmt.Errorf("unable to decode selectors file: %w", err)
	}

	return &sc, nil
}
