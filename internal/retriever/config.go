// File path: internal/retriever/config.go
package retriever

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	ProjectPrefix string `json:"project_prefix"`
	DefaultLimit  int    `json:"default_limit"`
}

// LoadConfig reads retrieval settings from the environment and fills
// defaults. The project prefix anchors the exact-key pattern, so queries
// mentioning issues from other projects fall through to semantic search only.
func LoadConfig() Config {
	cfg := Config{}
	if prefix := strings.TrimSpace(os.Getenv("RETRIEVER_PROJECT_PREFIX")); prefix != "" {
		cfg.ProjectPrefix = prefix
	}
	if limit := strings.TrimSpace(os.Getenv("RETRIEVER_DEFAULT_LIMIT")); limit != "" {
		if value, err := strconv.Atoi(limit); err == nil && value > 0 {
			cfg.DefaultLimit = value
		}
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ProjectPrefix) == "" {
		c.ProjectPrefix = "HRLIF"
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 10
	}
}
