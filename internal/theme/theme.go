// Package theme persists the light/dark display preference.
package theme

import (
	"github.com/comigor/halilintar-go/internal/logger"
)

// Key is the durable record holding the preference.
const Key = "theme"

type Preference string

const (
	Light Preference = "light"
	Dark  Preference = "dark"
)

// Default applies when nothing usable is stored.
const Default = Light

type Backend interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
}

// Parse accepts exactly "light" or "dark".
func Parse(s string) (Preference, bool) {
	switch Preference(s) {
	case Light, Dark:
		return Preference(s), true
	}
	return "", false
}

// Toggle returns the other preference.
func (p Preference) Toggle() Preference {
	if p == Dark {
		return Light
	}
	return Dark
}

// Load reads the stored preference, falling back to Default.
func Load(b Backend) Preference {
	raw, err := b.Get(Key)
	if err != nil {
		return Default
	}
	p, ok := Parse(string(raw))
	if !ok {
		logger.L.Warn("stored theme unreadable; using default", "value", string(raw))
		return Default
	}
	return p
}

func Save(b Backend, p Preference) error {
	return b.Put(Key, []byte(p))
}
