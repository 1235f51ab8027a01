package configuration

import (
	"fmt"

	"github.com/joho/godotenv"
)

// GodotenvProvider reads dotenv files through godotenv.
type GodotenvProvider struct{}

// Read reads KEY=VALUE configuration files into a map (map[key]value).
func (*GodotenvProvider) Read(filenames ...string) (map[string]string, error) {
	data, err := godotenv.Read(filenames...)
	if err != nil {
		return data, fmt.Errorf("(config-godotenv) %w", err)
	}

	return data, nil
}
