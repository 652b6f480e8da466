package mesh

import (
	"errors"
	"log/slog"
)

var (
	ErrHandleConsumed = errors.New("communication handle already waited on")
	ErrConfig         = errors.New("invalid mesh configuration")
)

// Options is the named option lookup the mesh reads its settings from, keys
// are case insensitive. A *viper.Viper satisfies it.
type Options interface {
	IsSet(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetFloat64(key string) float64
}

type Option func(m *Mesh)

func WithLogger(log *slog.Logger) Option {
	return func(m *Mesh) {
		if log != nil {
			m.log = log
		}
	}
}

func optInt(opts Options, key string, def int) int {
	if opts != nil && opts.IsSet(key) {
		return opts.GetInt(key)
	}
	return def
}

func optBool(opts Options, key string, def bool) bool {
	if opts != nil && opts.IsSet(key) {
		return opts.GetBool(key)
	}
	return def
}

func optFloat(opts Options, key string, def float64) float64 {
	if opts != nil && opts.IsSet(key) {
		return opts.GetFloat64(key)
	}
	return def
}

func optString(opts Options, key string, def string) string {
	if opts != nil && opts.IsSet(key) {
		return opts.GetString(key)
	}
	return def
}
