// Package config parses the daemon's runtime configuration from command-line
// flags, falling back to NAVMENU_* environment variables.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mchmarny/navmenu/pkg/logger"
	"github.com/mchmarny/navmenu/pkg/server"
)

// Environment variables read when the matching flag is not given.
const (
	// EnvPort sets the HTTP server port (-port).
	EnvPort = "NAVMENU_PORT"

	// EnvMenuFile sets the menu document path (-menu).
	EnvMenuFile = "NAVMENU_MENU_FILE"

	// EnvWatch enables reloading the menu document on change (-watch).
	EnvWatch = "NAVMENU_WATCH"

	// EnvFirstMatch makes searches prefer the first matching root (-first-match).
	EnvFirstMatch = "NAVMENU_FIRST_MATCH"

	// EnvHistory sets the number of navigations kept (-history).
	EnvHistory = "NAVMENU_HISTORY"
)

var (
	// ErrInvalidPort is returned for a port outside 1-65535.
	ErrInvalidPort = errors.New("invalid port")

	// ErrInvalidEnv is returned for an environment value that does not parse.
	ErrInvalidEnv = errors.New("invalid environment value")
)

// Config captures runtime configuration.
type Config struct {
	// Port the HTTP server listens on.
	Port int

	// MenuFile is the YAML or JSON menu document to load. Empty starts with
	// no menus; sets can still be published over HTTP.
	MenuFile string

	// Watch reloads MenuFile when it changes.
	Watch bool

	// FirstMatch makes searches prefer the earliest matching root.
	FirstMatch bool

	// HistoryLimit is the number of navigations kept.
	HistoryLimit int

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// Load parses configuration from os.Args and the environment.
func Load() (Config, error) {
	return LoadArgs(os.Args[1:], os.Environ())
}

// LoadArgs parses configuration from the given args and environment.
func LoadArgs(args []string, environ []string) (Config, error) {
	env := parseEnv(environ)

	fs := flag.NewFlagSet("navmenu", flag.ContinueOnError)
	fs.SetOutput(new(strings.Builder))

	defPort, err := envOrInt(env, EnvPort, server.DefaultPort)
	if err != nil {
		return Config{}, err
	}
	defWatch, err := envOrBool(env, EnvWatch, false)
	if err != nil {
		return Config{}, err
	}
	defFirst, err := envOrBool(env, EnvFirstMatch, false)
	if err != nil {
		return Config{}, err
	}
	defHistory, err := envOrInt(env, EnvHistory, 100)
	if err != nil {
		return Config{}, err
	}

	port := fs.Int("port", defPort, "port to run the server on")
	file := fs.String("menu", env[EnvMenuFile], "path to the menu document (YAML or JSON)")
	watch := fs.Bool("watch", defWatch, "reload the menu document when it changes")
	first := fs.Bool("first-match", defFirst, "prefer the first matching root in searches")
	history := fs.Int("history", defHistory, "number of navigations to keep")
	level := fs.String("log-level", env[logger.EnvVarLogLevel], "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *port < 1 || *port > 65535 {
		return Config{}, fmt.Errorf("%w: %d", ErrInvalidPort, *port)
	}
	if *watch && strings.TrimSpace(*file) == "" {
		return Config{}, errors.New("watch requires a menu document")
	}

	return Config{
		Port:         *port,
		MenuFile:     strings.TrimSpace(*file),
		Watch:        *watch,
		FirstMatch:   *first,
		HistoryLimit: *history,
		LogLevel:     *level,
	}, nil
}

func parseEnv(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// envOrInt returns the integer in env[key], or def when key is unset.
func envOrInt(env map[string]string, key string, def int) (int, error) {
	v, ok := env[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrInvalidEnv, key, v, err)
	}
	return n, nil
}

// envOrBool returns the boolean in env[key], or def when key is unset.
func envOrBool(env map[string]string, key string, def bool) (bool, error) {
	v, ok := env[key]
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q: %v", ErrInvalidEnv, key, v, err)
	}
	return b, nil
}
