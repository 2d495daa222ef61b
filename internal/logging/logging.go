// -----------------------------------------------------------------------------
// Structured Logging Setup
// -----------------------------------------------------------------------------
//
// Package logging installs the process-wide slog logger. Output goes to
// stderr so fatal startup messages land on the error stream and textfile
// mode can write metrics to stdout.
//
// Environment:
//   LOG_LEVEL:  debug|info|warn|error   (default: info)
//   LOG_FORMAT: json|text               (default: json)
//   LOG_TAGS:   "k=v,k2=v2"             (applied to every log)
//   LOG_SOURCE: true|1                  (include file:line)
//
// -----------------------------------------------------------------------------

package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configures Init.
type Options struct {
	Level     slog.Level
	Format    string            // "json" (default) | "text"
	Tags      map[string]string // static tags applied to every record
	AddSource bool              // include file:line
	Output    io.Writer         // defaults to os.Stderr
}

// Init builds and installs a default slog.Logger with static tags.
func Init(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	hopts := &slog.HandlerOptions{Level: opts.Level, AddSource: opts.AddSource}

	var h slog.Handler
	switch strings.ToLower(opts.Format) {
	case "text":
		h = slog.NewTextHandler(out, hopts)
	default:
		h = slog.NewJSONHandler(out, hopts)
	}

	attrs := make([]any, 0, len(opts.Tags)*2)
	for k, v := range opts.Tags {
		attrs = append(attrs, k, v)
	}

	logger := slog.New(h).With(attrs...)
	slog.SetDefault(logger)
	return logger
}

// InitFromEnv reads the LOG_* variables and installs the default logger.
// extraTags override tags from LOG_TAGS with the same key.
func InitFromEnv(extraTags map[string]string) *slog.Logger {
	return Init(optionsFromEnv(os.Getenv, extraTags))
}

func optionsFromEnv(getenv func(string) string, extraTags map[string]string) Options {
	lvl := slog.LevelInfo
	switch strings.ToLower(getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	source := getenv("LOG_SOURCE")
	addSource := strings.EqualFold(source, "1") || strings.EqualFold(source, "true")

	tags := parseTags(getenv("LOG_TAGS"))
	for k, v := range extraTags {
		tags[k] = v
	}

	return Options{
		Level:     lvl,
		Format:    getenv("LOG_FORMAT"),
		Tags:      tags,
		AddSource: addSource,
	}
}

func parseTags(s string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		if pair == "" {
			continue
		}
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 {
			continue
		}
		k := strings.TrimSpace(kv[0])
		v := strings.TrimSpace(kv[1])
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}
