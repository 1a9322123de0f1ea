// Package oci serves fragments stored as blobs in OCI registries.
//
// Objects are addressed as oci://registry/repository@sha256:<hex>. The blob
// descriptor is resolved once per digest and cached; range reads seek into
// the blob when the registry supports HTTP ranges and discard up to the
// offset otherwise.
package oci

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"sync"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"golang.org/x/sync/singleflight"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
	"oras.land/oras-go/v2/registry/remote/errcode"
	"oras.land/oras-go/v2/registry/remote/retry"

	"github.com/d70-t/preffs/backend"
	"github.com/d70-t/preffs/internal/sizing"
)

// Scheme is the URI scheme served by this backend.
const Scheme = "oci"

// ErrInvalidReference is returned for URIs that do not name a blob by digest.
var ErrInvalidReference = errors.New("preffs: invalid oci reference")

// blobStore is the part of a repository's blob API used for range reads.
type blobStore interface {
	Resolve(ctx context.Context, reference string) (ocispec.Descriptor, error)
	Fetch(ctx context.Context, target ocispec.Descriptor) (io.ReadCloser, error)
}

// Backend reads byte ranges of registry blobs.
type Backend struct {
	plainHTTP bool
	anonymous bool
	userAgent string
	credStore credentials.Store

	authClient *auth.Client
	open       func(repoRef string) (blobStore, error)

	mu    sync.RWMutex
	descs map[string]ocispec.Descriptor
	group singleflight.Group // zero value is valid
}

// Option configures a Backend.
type Option func(*Backend)

// WithPlainHTTP enables plain HTTP (no TLS) for registries.
func WithPlainHTTP(enabled bool) Option {
	return func(b *Backend) {
		b.plainHTTP = enabled
	}
}

// WithAnonymous disables all authentication, including credential lookups.
func WithAnonymous() Option {
	return func(b *Backend) {
		b.anonymous = true
	}
}

// WithUserAgent sets the User-Agent header for requests.
func WithUserAgent(ua string) Option {
	return func(b *Backend) {
		b.userAgent = ua
	}
}

// WithCredentialStore sets the credential store for authentication.
func WithCredentialStore(store credentials.Store) Option {
	return func(b *Backend) {
		b.credStore = store
	}
}

// WithDockerConfig reads credentials from ~/.docker/config.json and its
// credential helpers. Without a usable docker config the backend falls back
// to anonymous access.
func WithDockerConfig() Option {
	return func(b *Backend) {
		store, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
		if err != nil {
			return
		}
		b.credStore = store
	}
}

// New creates an OCI backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		userAgent: "preffs/1.0",
		descs:     make(map[string]ocispec.Descriptor),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.authClient = &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
		Credential: func(ctx context.Context, hostport string) (auth.Credential, error) {
			if b.anonymous || b.credStore == nil {
				return auth.EmptyCredential, nil
			}
			return b.credStore.Get(ctx, hostport)
		},
		Header: http.Header{
			"User-Agent": []string{b.userAgent},
		},
	}
	if b.open == nil {
		b.open = b.repositoryBlobs
	}
	return b
}

// Factory returns a backend.Factory producing an OCI backend.
func Factory(opts ...Option) backend.Factory {
	return func(context.Context, string) (backend.Backend, error) {
		return New(opts...), nil
	}
}

// repositoryBlobs opens the blob store of a remote repository using the
// shared auth client, so tokens are reused across requests.
func (b *Backend) repositoryBlobs(repoRef string) (blobStore, error) {
	repo, err := remote.NewRepository(repoRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidReference, repoRef, err)
	}
	repo.PlainHTTP = b.plainHTTP
	repo.Client = b.authClient
	return repo.Blobs(), nil
}

// ParseURI parses "oci://registry/repository@digest".
func ParseURI(uri string) (registry.Reference, error) {
	ref, err := registry.ParseReference(backend.TrimScheme(uri))
	if err != nil {
		return registry.Reference{}, fmt.Errorf("%w: %q: %w", ErrInvalidReference, uri, err)
	}
	if _, err := ref.Digest(); err != nil {
		return registry.Reference{}, fmt.Errorf("%w: %q: blob must be addressed by digest", ErrInvalidReference, uri)
	}
	return ref, nil
}

// ReadRange implements backend.Backend.
func (b *Backend) ReadRange(ctx context.Context, uri string, start, end uint64) ([]byte, error) {
	ref, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if end < start {
		return nil, fmt.Errorf("read %s: invalid range [%d,%d)", uri, start, end)
	}
	n, err := sizing.Int(end - start)
	if err != nil {
		return nil, err
	}
	off, err := sizing.Int64(start)
	if err != nil {
		return nil, err
	}

	repoRef := ref.Registry + "/" + ref.Repository
	store, err := b.open(repoRef)
	if err != nil {
		return nil, err
	}
	desc, err := b.descriptor(ctx, store, ref)
	if err != nil {
		return nil, err
	}
	if end > uint64(desc.Size) { //nolint:gosec // descriptor sizes are non-negative
		return nil, fmt.Errorf("read %s: range [%d,%d) exceeds blob size %d: %w", uri, start, end, desc.Size, io.ErrUnexpectedEOF)
	}
	if n == 0 {
		return []byte{}, nil
	}

	rc, err := store.Fetch(ctx, desc)
	if err != nil {
		return nil, mapError(uri, err)
	}
	defer rc.Close()

	if err := skipTo(rc, off); err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rc, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	return buf, nil
}

// SupportsConcurrentFetch implements backend.ConcurrentFetcher.
func (b *Backend) SupportsConcurrentFetch() bool {
	return true
}

// descriptor resolves the blob descriptor for ref, once per digest.
func (b *Backend) descriptor(ctx context.Context, store blobStore, ref registry.Reference) (ocispec.Descriptor, error) {
	key := ref.String()

	b.mu.RLock()
	desc, ok := b.descs[key]
	b.mu.RUnlock()
	if ok {
		return desc, nil
	}

	v, err, _ := b.group.Do(key, func() (any, error) {
		desc, err := store.Resolve(ctx, ref.Reference)
		if err != nil {
			return nil, mapError(key, err)
		}
		b.mu.Lock()
		b.descs[key] = desc
		b.mu.Unlock()
		return desc, nil
	})
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	return v.(ocispec.Descriptor), nil //nolint:errcheck // type assertion always succeeds when err is nil
}

// skipTo positions r at off, seeking when the stream supports it.
func skipTo(r io.Reader, off int64) error {
	if off == 0 {
		return nil
	}
	if s, ok := r.(io.Seeker); ok {
		_, err := s.Seek(off, io.SeekStart)
		return err
	}
	skipped, err := io.CopyN(io.Discard, r, off)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("skipped %d of %d bytes: %w", skipped, off, io.ErrUnexpectedEOF)
		}
		return err
	}
	return nil
}

// mapError translates registry not-found responses to fs.ErrNotExist.
func mapError(uri string, err error) error {
	if errors.Is(err, errdef.ErrNotFound) {
		return fmt.Errorf("fetch %s: %w: %w", uri, fs.ErrNotExist, err)
	}
	var errResp *errcode.ErrorResponse
	if errors.As(err, &errResp) && errResp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("fetch %s: %w: %w", uri, fs.ErrNotExist, err)
	}
	return fmt.Errorf("fetch %s: %w", uri, err)
}

var (
	_ backend.Backend           = (*Backend)(nil)
	_ backend.ConcurrentFetcher = (*Backend)(nil)
)
