package reactor

import (
	"time"

	"github.com/thushan/tabkeeper/internal/core/domain"
)

const (
	DefaultShortWindow = 100 * time.Millisecond
	DefaultLongWindow  = time.Second
)

// Config holds the debounce window per resource kind. Kinds without an
// entry use Default.
type Config struct {
	Windows map[domain.ResourceKind]time.Duration
	Default time.Duration
}

// DefaultConfig uses short windows for per-item changes and long ones for
// bulk resources
func DefaultConfig() Config {
	return Config{
		Default: DefaultLongWindow,
		Windows: map[domain.ResourceKind]time.Duration{
			domain.ResourceHidden:         DefaultShortWindow,
			domain.ResourceInstall:        DefaultShortWindow,
			domain.ResourceRemovableMedia: DefaultShortWindow,
			domain.ResourceFavorites:      DefaultShortWindow,
			domain.ResourceSoundtracks:    DefaultShortWindow,
			domain.ResourceGrouping:       500 * time.Millisecond,
			domain.ResourceCatalog:        DefaultLongWindow,
			domain.ResourceTags:           DefaultLongWindow,
			domain.ResourceSocial:         DefaultLongWindow,
		},
	}
}

func (c *Config) Window(kind domain.ResourceKind) time.Duration {
	if d, ok := c.Windows[kind]; ok && d > 0 {
		return d
	}
	if c.Default > 0 {
		return c.Default
	}
	return DefaultLongWindow
}
