package configuration

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

type genericConfigProvider interface {
	Read(filenames ...string) (envMap map[string]string, err error)
}

// ConfigProviderImpl reads configuration maps and converts their values.
type ConfigProviderImpl struct {
	GenericConfigReader genericConfigProvider
}

func (c *ConfigProviderImpl) ReadGeneric(filenames ...string) (envMap map[string]string, err error) {
	return c.GenericConfigReader.Read(filenames...)
}

func (c *ConfigProviderImpl) MapKeyToString(envMap map[string]string, key string) string {
	if value, exists := envMap[key]; exists {
		return strings.TrimSpace(value)
	}

	return ""
}

// MapKeyToInt returns -1 for missing or malformed values.
func (c *ConfigProviderImpl) MapKeyToInt(envMap map[string]string, key string) int {
	value := c.MapKeyToString(envMap, key)
	if value == "" {
		return -1
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}

	return intValue
}

// MapKeyToBool returns def for missing values. Malformed values are
// reported through ok.
func (c *ConfigProviderImpl) MapKeyToBool(envMap map[string]string, key string, def bool) (value bool, ok bool) {
	raw := c.MapKeyToString(envMap, key)
	if raw == "" {
		return def, true
	}

	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return def, false
	}
}

// MapKeyToBytes parses humanized sizes such as "1GB" or "512 MiB". A missing
// value is zero.
func (c *ConfigProviderImpl) MapKeyToBytes(envMap map[string]string, key string) (uint64, error) {
	value := c.MapKeyToString(envMap, key)
	if value == "" {
		return 0, nil
	}

	return humanize.ParseBytes(value)
}

// MapKeyToList splits a comma separated value, dropping empty elements. A
// missing key yields nil, an explicitly empty one an empty list.
func (c *ConfigProviderImpl) MapKeyToList(envMap map[string]string, key string) []string {
	value, exists := envMap[key]
	if !exists {
		return nil
	}

	list := []string{}
	for _, elem := range strings.Split(value, ",") {
		if elem = strings.TrimSpace(elem); elem != "" {
			list = append(list, elem)
		}
	}

	return list
}
