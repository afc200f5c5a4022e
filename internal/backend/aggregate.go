package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	// Banner introduces the aggregated module data in the instruction
	Banner = "\n\nHere is relevant data from the MGM database:\n"
	// UnavailableNote replaces the whole block when the backend is not configured
	UnavailableNote = "\n\nNote: Unable to retrieve backend data at this time."
)

// ModuleFetcher fetches one module. Implementations convert every failure
// into a fragment rather than an error.
type ModuleFetcher interface {
	Fetch(ctx context.Context, m Module) Fragment
}

// Aggregator fans out one fetch per module and merges the fragments
type Aggregator struct {
	fetcher    ModuleFetcher
	modules    []Module
	maxContext int
	logger     *zap.Logger
}

// NewAggregator creates an aggregator over modules in enumeration order.
// A nil fetcher means the backend is not configured.
func NewAggregator(fetcher ModuleFetcher, modules []Module, maxContext int, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		fetcher:    fetcher,
		modules:    modules,
		maxContext: maxContext,
		logger:     logger,
	}
}

// Modules returns the module enumeration
func (a *Aggregator) Modules() []Module {
	return a.modules
}

// Gather fetches every module concurrently and returns one fragment per
// module, in enumeration order. One module's failure (even a panic) never
// affects its siblings.
func (a *Aggregator) Gather(ctx context.Context) []Fragment {
	fragments := make([]Fragment, len(a.modules))

	var wg sync.WaitGroup
	for i, m := range a.modules {
		wg.Add(1)
		go func(i int, m Module) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					a.logger.Error("Backend module fetch panicked",
						zap.String("module", m.Name), zap.Any("panic", r))
					fragments[i] = Fragment{Module: m.Name, Status: StatusError, Err: fmt.Errorf("panic: %v", r)}
				}
			}()
			fragments[i] = a.fetcher.Fetch(ctx, m)
		}(i, m)
	}
	wg.Wait()

	return fragments
}

// Context gathers all modules and renders the context block appended to
// the system instruction.
func (a *Aggregator) Context(ctx context.Context) (string, []Fragment) {
	if a.fetcher == nil {
		return UnavailableNote, nil
	}

	fragments := a.Gather(ctx)
	block := Render(fragments, a.maxContext)

	available := 0
	for _, f := range fragments {
		if f.Available() {
			available++
		}
	}
	a.logger.Info("Fetched backend module data",
		zap.Int("modules", len(fragments)),
		zap.Int("available", available),
		zap.Int("bytes", len(block)),
	)
	return block, fragments
}

// Render concatenates fragments in order after the banner, capping the
// result at maxBytes (<= 0 for no cap).
func Render(fragments []Fragment, maxBytes int) string {
	parts := make([]string, len(fragments))
	for i, f := range fragments {
		parts[i] = f.Render()
	}
	return Banner + Truncate(strings.Join(parts, "\n"), maxBytes)
}
