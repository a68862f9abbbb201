package commands

import (
	"context"

	"github.com/dyluth/huddle/internal/printer"
	"github.com/dyluth/huddle/internal/resolver"
)

// resolveSessionID expands a short id, printing a friendly error when it
// matches nothing or more than one session.
func resolveSessionID(ctx context.Context, store resolver.Store, shortID string) (string, error) {
	id, err := resolver.ResolveSessionID(ctx, store, shortID)
	if err == nil {
		return id, nil
	}

	switch {
	case resolver.IsNotFoundError(err):
		return "", printer.Error(
			"session not found",
			err.Error(),
			[]string{"List sessions:\n  huddle list"},
		)
	case resolver.IsAmbiguousError(err):
		amb := err.(*resolver.AmbiguousError)
		return "", printer.Error(
			"ambiguous session id",
			err.Error()+". Use a longer prefix. Matches:",
			amb.Suggestions(),
		)
	}
	return "", printer.Error("invalid session id", err.Error(), nil)
}

// resolveForWrite expands short ids for write commands. Full UUIDs skip the
// store so writes work without local store access.
func resolveForWrite(ctx context.Context, shortID string) (string, error) {
	if resolver.IsFullID(shortID) {
		return shortID, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return "", err
	}
	defer store.Close()
	return resolveSessionID(ctx, store, shortID)
}
