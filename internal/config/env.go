package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// lookup returns the parsed value of key, or def when the variable is unset
// or does not parse.
func lookup[T any](key string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func envStr(key, def string) string {
	return lookup(key, def, func(s string) (string, error) { return s, nil })
}

func envInt(key string, def int) int { return lookup(key, def, strconv.Atoi) }

func envDur(key string, def time.Duration) time.Duration {
	return lookup(key, def, time.ParseDuration)
}

// envBool also accepts yes/no and on/off.
func envBool(key string, def bool) bool {
	return lookup(key, def, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "yes", "on":
			return true, nil
		case "no", "off":
			return false, nil
		}
		return strconv.ParseBool(s)
	})
}
