package preffs

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/d70-t/preffs/backend"
	"github.com/d70-t/preffs/internal/pathutil"
	"github.com/d70-t/preffs/internal/reftype"
	"github.com/d70-t/preffs/manifest"
)

// ErrorPolicy selects how CatMany handles a failing key.
type ErrorPolicy int

const (
	// RaiseErrors aborts the batch on the first failing key.
	RaiseErrors ErrorPolicy = iota
	// ReturnErrors records per-key failures in CatResult.Errors and keeps
	// serving the remaining keys.
	ReturnErrors
)

func (p ErrorPolicy) String() string {
	switch p {
	case RaiseErrors:
		return "raise"
	case ReturnErrors:
		return "return"
	default:
		return fmt.Sprintf("ErrorPolicy(%d)", int(p))
	}
}

// CatOption configures CatMany.
type CatOption func(*catConfig)

type catConfig struct {
	policy    ErrorPolicy
	recursive bool
}

// CatWithErrorPolicy sets the error policy. The default is RaiseErrors.
func CatWithErrorPolicy(p ErrorPolicy) CatOption {
	return func(c *catConfig) {
		c.policy = p
	}
}

// CatWithRecursive expands directory keys into every file below them.
func CatWithRecursive(recursive bool) CatOption {
	return func(c *catConfig) {
		c.recursive = recursive
	}
}

// CatResult holds the outcome of CatMany.
type CatResult struct {
	// Single is set when the request named exactly one concrete key. Data
	// then holds its bytes and Files is nil.
	Single bool
	Data   []byte

	// Files maps each served key to its bytes.
	Files map[string][]byte

	// Errors maps failing keys to their error under ReturnErrors.
	Errors map[string]error
}

// CatMany reads several files.
//
// Keys are grouped by the backend scheme of their fragments; inline-only
// keys form their own group. Groups whose backend supports concurrent
// fetches are read concurrently, the rest one key at a time.
//
// Keys containing glob metacharacters expand against the manifest, and with
// CatWithRecursive a directory key expands to every file below it. Either
// expansion is only supported when every matched key is inline or local;
// otherwise CatMany fails with ErrNotImplemented.
func (f *FS) CatMany(ctx context.Context, keys []string, opts ...CatOption) (*CatResult, error) {
	cfg := catConfig{policy: RaiseErrors}
	for _, opt := range opts {
		opt(&cfg)
	}

	expanded, single, err := f.expand(keys, cfg.recursive)
	if err != nil {
		return nil, err
	}

	res := &CatResult{
		Files:  make(map[string][]byte, len(expanded)),
		Errors: make(map[string]error),
	}
	groups := f.group(expanded)
	f.log().Debug("cat many", "keys", len(expanded), "groups", len(groups), "policy", cfg.policy)

	for _, scheme := range slices.Sorted(maps.Keys(groups)) {
		if err := f.catGroup(ctx, scheme, groups[scheme], cfg.policy, res); err != nil {
			return nil, err
		}
	}

	if single {
		if err, ok := res.Errors[expanded[0]]; ok {
			return &CatResult{Single: true, Errors: map[string]error{expanded[0]: err}}, nil
		}
		return &CatResult{Single: true, Data: res.Files[expanded[0]], Errors: res.Errors}, nil
	}
	return res, nil
}

// expand normalizes keys and resolves wildcard and recursive expansion.
// It reports whether the request named a single concrete key.
func (f *FS) expand(keys []string, recursive bool) ([]string, bool, error) {
	var (
		out      []string
		seen     = make(map[string]struct{}, len(keys))
		concrete = 0
	)
	add := func(key string) {
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			out = append(out, key)
		}
	}

	for _, raw := range keys {
		key := NormalizePath(raw)
		var matches []string
		switch {
		case pathutil.HasMeta(key):
			m, err := f.Glob(key)
			if err != nil {
				return nil, false, fmt.Errorf("cat %q: %w", raw, err)
			}
			matches = m
			if recursive {
				for _, k := range m {
					matches = append(matches, f.Find(k)...)
				}
			}
		case recursive && f.IsDir(key):
			matches = f.Find(key)
		default:
			concrete++
			add(key)
			continue
		}

		for _, k := range matches {
			if scheme := f.keyScheme(k); scheme != "" && scheme != manifest.DefaultScheme {
				return nil, false, fmt.Errorf("cat %q: expansion over %s fragments: %w", raw, scheme, reftype.ErrNotImplemented)
			}
			if f.IsFile(k) {
				add(k)
			}
		}
	}
	return out, len(keys) == 1 && concrete == 1, nil
}

// keyScheme returns the scheme of key's fragments, "" for inline or absent
// keys.
func (f *FS) keyScheme(key string) string {
	rows, ok := f.idx.Lookup(key)
	if !ok || len(rows) == 0 {
		return ""
	}
	return rows[0].Scheme()
}

func (f *FS) group(keys []string) map[string][]string {
	groups := make(map[string][]string)
	for _, key := range keys {
		scheme := f.keyScheme(key)
		groups[scheme] = append(groups[scheme], key)
	}
	return groups
}

// catGroup serves one scheme group, storing results in res.
func (f *FS) catGroup(ctx context.Context, scheme string, keys []string, policy ErrorPolicy, res *CatResult) error {
	concurrent := false
	if scheme != "" {
		b, err := f.registry.Get(ctx, scheme)
		if err != nil {
			if policy == RaiseErrors {
				return err
			}
			for _, key := range keys {
				res.Errors[key] = err
			}
			return nil
		}
		concurrent = backend.Concurrent(b) && len(keys) > 1
	}
	f.log().Debug("cat group", "scheme", scheme, "keys", len(keys), "concurrent", concurrent)

	if !concurrent {
		for _, key := range keys {
			data, err := f.Cat(ctx, key)
			if err != nil {
				if policy == RaiseErrors {
					return err
				}
				res.Errors[key] = err
				continue
			}
			res.Files[key] = data
		}
		return nil
	}

	var mu sync.Mutex
	p := pool.New().WithContext(ctx)
	if f.maxConcurrentFetches > 0 {
		p = p.WithMaxGoroutines(f.maxConcurrentFetches)
	}
	if policy == RaiseErrors {
		p = p.WithCancelOnError().WithFirstError()
	}
	for _, key := range keys {
		p.Go(func(ctx context.Context) error {
			data, err := f.Cat(ctx, key)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if policy == RaiseErrors {
					return err
				}
				res.Errors[key] = err
				return nil
			}
			res.Files[key] = data
			return nil
		})
	}
	return p.Wait()
}
