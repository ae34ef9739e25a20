// Package ledger persists confirmed purchase items and validates the
// candidates that become them.
package ledger

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/outlaylabs/outlay/internal/config"
)

// Candidate is an extracted purchase awaiting user confirmation.
type Candidate struct {
	Name  string
	Price float64
}

// Validate checks the constraints every candidate must satisfy before it can
// be held for review or persisted.
func (c Candidate) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("item name cannot be empty")
	}
	if math.IsNaN(c.Price) || math.IsInf(c.Price, 0) {
		return fmt.Errorf("item price must be a finite number")
	}
	if c.Price < 0 {
		return fmt.Errorf("item price cannot be negative")
	}
	return nil
}

// Normalized returns the candidate with whitespace collapsed and the name
// title-cased.
func (c Candidate) Normalized() Candidate {
	return Candidate{Name: TitleCase(c.Name), Price: c.Price}
}

// Item is one persisted purchase row.
type Item struct {
	ID        string
	Name      string
	Price     float64
	OwnerID   string
	CreatedAt time.Time
}

// Store persists items for one owner namespace. Insert returns the refreshed
// newest-first item list so callers render the post-write state directly.
type Store interface {
	Insert(ctx context.Context, candidate Candidate, ownerID string) ([]Item, error)
	List(ctx context.Context) ([]Item, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// NewStore builds the persistence backend selected by config.
func NewStore(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "sqlite":
		path := cfg.Path
		if path == "" {
			var err error
			path, err = defaultSQLitePath()
			if err != nil {
				return nil, err
			}
		}
		return OpenSQLite(ctx, path)
	case "remote":
		if cfg.URL == "" {
			return nil, fmt.Errorf("store.backend remote requires store.url")
		}
		return NewRemoteStore(cfg.URL, cfg.Token), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// defaultSQLitePath resolves $XDG_DATA_HOME/outlay/items.db.
func defaultSQLitePath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "outlay", "items.db"), nil
}

// TitleCase collapses whitespace and upper-cases the first letter of each
// word, matching how item names are displayed.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
