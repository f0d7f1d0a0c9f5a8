package catalog

//go:generate mockery -name Client

import (
	"context"
	"io"
)

// Client is used for communicating with the remote study catalog.
//
// Implementations report failures with the error kinds from pkg/errors:
// AuthError from Authenticate, CatalogUnavailable from ListStudies, NotFound
// from GetStudy, and TransportError from the per-study fetches.
type Client interface {
	Authenticate(context.Context, Credentials) error
	ListStudies(context.Context) ([]Study, error)
	GetStudy(ctx context.Context, id string) (Study, error)
	FetchData(context.Context, Study) (io.ReadCloser, error)
	FetchVariables(context.Context, Study) ([]Variable, error)
}
