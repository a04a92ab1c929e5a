package links

import (
	"context"
	"errors"

	"github.com/linkpulse/linkpulse/internal/errx"
	"github.com/linkpulse/linkpulse/suffixgen"
)

// DefaultReservedSuffixes are suffix values that collide with static
// application routes and may never be allocated. Injected at startup and
// treated as read-only thereafter.
var DefaultReservedSuffixes = []string{
	"dashboard",
	"link",
	"profile",
	"login",
	"logout",
	"signup",
	"api-docs",
	"auth",
	"auth-callback",
	"api",
}

// SuffixChecker is the subset of Repository the allocator needs.
type SuffixChecker interface {
	SuffixExists(ctx context.Context, suffix string) (bool, error)
}

// Allocator decides the final short suffix for a link. It is a pure
// check-and-return component: persistence is a separate step performed by
// the caller, and the store's unique constraint remains the authoritative
// guard against a concurrent allocate+insert race.
type Allocator struct {
	checker  SuffixChecker
	gen      suffixgen.Generator
	reserved map[string]struct{}
}

// AllocatorConfig holds configuration for the allocator.
type AllocatorConfig struct {
	Generator        suffixgen.Generator
	ReservedSuffixes []string // defaults to DefaultReservedSuffixes
}

// NewAllocator creates a new suffix allocator.
func NewAllocator(checker SuffixChecker, config *AllocatorConfig) *Allocator {
	if config == nil {
		config = &AllocatorConfig{}
	}

	gen := config.Generator
	if gen == nil {
		gen = suffixgen.NewLetters()
	}

	words := config.ReservedSuffixes
	if words == nil {
		words = DefaultReservedSuffixes
	}

	reserved := make(map[string]struct{}, len(words))
	for _, w := range words {
		reserved[w] = struct{}{}
	}

	return &Allocator{
		checker:  checker,
		gen:      gen,
		reserved: reserved,
	}
}

// Allocate resolves the final suffix for a link. A non-empty custom
// suffix is returned unchanged if it is neither reserved nor in use;
// otherwise a fresh 5-letter suffix is drawn until a free one is found.
// There is no retry cap: at this suffix length the namespace is large
// enough that repeated collisions indicate an operational problem, not a
// case to paper over.
func (a *Allocator) Allocate(ctx context.Context, custom string) (string, error) {
	const op = "links.allocator.Allocate"

	if custom != "" {
		// Reserved check first: cheap short-circuit with no store call.
		if a.isReserved(custom) {
			return "", errx.E(op, errx.Conflict, errors.New("custom suffix is reserved"))
		}

		inUse, err := a.checker.SuffixExists(ctx, custom)
		if err != nil {
			return "", errx.E(op, errx.KindOf(err), err)
		}
		if inUse {
			return "", errx.E(op, errx.Conflict, errors.New("custom suffix in use"))
		}
		return custom, nil
	}

	for {
		suffix, err := a.gen.Generate(suffixgen.GeneratedLength)
		if err != nil {
			return "", errx.E(op, errx.Unavailable, err)
		}

		// Generated suffixes can still land on a reserved word
		// ("login" is five letters); skip without touching the store.
		if a.isReserved(suffix) {
			continue
		}

		inUse, err := a.checker.SuffixExists(ctx, suffix)
		if err != nil {
			return "", errx.E(op, errx.KindOf(err), err)
		}
		if !inUse {
			return suffix, nil
		}
	}
}

func (a *Allocator) isReserved(suffix string) bool {
	_, ok := a.reserved[suffix]
	return ok
}
