package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"

	"github.com/otcheredev/report-resolver/internal/cache"
	"github.com/otcheredev/report-resolver/internal/config"
	"github.com/otcheredev/report-resolver/internal/models"
)

// CachedURLAdapter serves a previously resolved, still-nominally-valid
// presigned URL out of the local cache without touching either backend.
// Entries live under one namespaced key per query identity and are written
// by the pipeline whenever a source succeeds. When an entry holds a bare
// object key instead of a URL, the adapter asks the local backend to mint a
// fresh view URL for it; that is the only network call it may make.
type CachedURLAdapter struct {
	cache   cache.Cache
	store   config.ObjectStoreConfig
	client  *http.Client
	baseURL string
	creds   CredentialProvider
}

// NewCachedURLAdapter creates a new cached-URL adapter
func NewCachedURLAdapter(c cache.Cache, store config.ObjectStoreConfig, local config.LocalBackendConfig, creds CredentialProvider) *CachedURLAdapter {
	return &CachedURLAdapter{
		cache: c,
		store: store,
		client: &http.Client{
			Timeout: local.Timeout,
		},
		baseURL: local.BaseURL,
		creds:   creds,
	}
}

// Name identifies this adapter
func (a *CachedURLAdapter) Name() models.SourceKind {
	return models.SourceCached
}

// TryResolve reads the namespaced cache entry for the query identity. Every
// failure mode here is a miss: a stale or broken cache must never make the
// overall resolution look worse than simply not having a cache.
func (a *CachedURLAdapter) TryResolve(ctx context.Context, query models.ReportQuery) (*models.ReportReference, error) {
	identity := query.CacheIdentity()
	if identity == "" {
		return nil, ErrNotFound
	}

	data, err := a.cache.Get(ctx, cache.ReportURLKey(identity))
	if err != nil {
		return nil, ErrNotFound
	}

	entry, err := cache.DecodeEntry(data)
	if err != nil {
		return nil, ErrNotFound
	}

	if entry.URL != "" && a.looksLikeReportURL(entry.URL) {
		return &models.ReportReference{
			Source:        models.SourceCached,
			URL:           entry.URL,
			URLKind:       models.URLKindViewInline,
			ObjectKey:     entry.ObjectKey,
			ExpiresApprox: PresignedURLValidity,
		}, nil
	}

	if entry.ObjectKey != "" {
		return a.presignByKey(ctx, entry.ObjectKey)
	}

	return nil, ErrNotFound
}

// looksLikeReportURL checks that a cached string is syntactically a URL and
// carries the configured object-store path marker. Host and marker are
// deployment configuration, not inline literals.
func (a *CachedURLAdapter) looksLikeReportURL(raw string) bool {
	u, err := neturl.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if !strings.Contains(u.Path, a.store.PathMarker) {
		return false
	}
	// Presigned URLs may address the bucket as a subdomain of the store host
	return u.Host == a.store.Host || strings.HasSuffix(u.Host, "."+a.store.Host)
}

// presignByKey asks the local backend for a fresh view URL for an object
// key. A failure here is a miss, not an error.
func (a *CachedURLAdapter) presignByKey(ctx context.Context, key string) (*models.ReportReference, error) {
	token, err := a.creds.Token(ctx)
	if err != nil || token == "" {
		return nil, ErrNotFound
	}

	presignURL := fmt.Sprintf("%s/storage/presign-view?key=%s", a.baseURL, neturl.QueryEscape(key))
	req, err := http.NewRequestWithContext(ctx, "GET", presignURL, nil)
	if err != nil {
		return nil, ErrNotFound
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, ErrNotFound
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, ErrNotFound
	}

	var presigned struct {
		ViewURL string `json:"view_url"`
		Key     string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&presigned); err != nil {
		return nil, ErrNotFound
	}
	if presigned.ViewURL == "" {
		return nil, ErrNotFound
	}

	return &models.ReportReference{
		Source:        models.SourceCached,
		URL:           presigned.ViewURL,
		URLKind:       models.URLKindViewInline,
		ObjectKey:     key,
		ExpiresApprox: PresignedURLValidity,
	}, nil
}
