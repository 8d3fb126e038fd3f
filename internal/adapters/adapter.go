package adapters

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/otcheredev/report-resolver/internal/models"
)

// ErrNotFound signals that a source was checked and has nothing usable yet.
// It is the expected, recoverable miss; anything else an adapter returns is
// treated as a source failure by the pipeline.
var ErrNotFound = errors.New("report not found")

// PresignedURLValidity is the nominal validity window the local backend
// attaches to presigned object-store URLs. Advisory only; expiry is
// enforced by the object store, not verified here.
const PresignedURLValidity = 7 * 24 * time.Hour

// CredentialProvider supplies the caller's bearer token for authenticated
// calls against the local backend. Session management itself is an external
// collaborator's job.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a plain function to CredentialProvider
type TokenFunc func(ctx context.Context) (string, error)

// Token implements CredentialProvider
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken returns a CredentialProvider that always yields the same token
func StaticToken(token string) CredentialProvider {
	return TokenFunc(func(context.Context) (string, error) {
		return token, nil
	})
}

// ReportSource defines the interface that all report source adapters must
// implement. TryResolve returns a usable reference, ErrNotFound when the
// source has nothing yet, or an error when the source could not be queried
// at all.
type ReportSource interface {
	Name() models.SourceKind
	TryResolve(ctx context.Context, query models.ReportQuery) (*models.ReportReference, error)
}

// InlineToDownloadURL rewrites an inline-view URL into its attachment
// variant so callers can trigger a download without a new round trip
func InlineToDownloadURL(url string) string {
	return strings.Replace(url, "disposition=inline", "disposition=attachment", 1)
}
