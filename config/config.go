// Package config holds the environment-driven tuning knobs for the corpus
// iterator: worker count, queue capacity, and chunk size. Nothing in the
// query/match/tree/conllu core reads this package — it is wired in only
// by the corpus iterator and the CLI.
package config

import (
	"os"
	"strconv"
)

// Config holds the corpus iterator's tuning knobs.
type Config struct {
	// Workers is the worker-pool size for unordered corpus iteration.
	Workers int
	// QueueCapacity bounds the unordered-mode result queue.
	QueueCapacity int
	// ChunkSize is how many files are dispatched to a worker at a time,
	// to amortise scheduling overhead.
	ChunkSize int
	// OrderedByDefault holds the TREESEARCH_ORDERED setting. The corpus and
	// treesearch functions take ordering as an explicit argument and the
	// CLI's --ordered flag defaults to true; neither reads this field.
	OrderedByDefault bool
}

// LoadConfig loads iterator tuning from environment variables, falling
// back to the defaults below for any unset or unparsable value.
func LoadConfig() *Config {
	cfg := &Config{
		Workers:          8,
		QueueCapacity:    8,
		ChunkSize:        8,
		OrderedByDefault: true,
	}

	if v := os.Getenv("TREESEARCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("TREESEARCH_QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.QueueCapacity = n
		}
	}
	if v := os.Getenv("TREESEARCH_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ChunkSize = n
		}
	}
	if v := os.Getenv("TREESEARCH_ORDERED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.OrderedByDefault = b
		}
	}

	return cfg
}
