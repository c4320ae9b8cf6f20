// Package storage opens the product and order store selected by a database
// URL.
package storage

import (
	"context"
	"net/url"

	"github.com/go-faster/errors"

	"github.com/xenking/zarqash/internal/domain/order"
	"github.com/xenking/zarqash/internal/domain/product"
	"github.com/xenking/zarqash/internal/storage/memory"
	"github.com/xenking/zarqash/internal/storage/mongodb"
	"github.com/xenking/zarqash/internal/storage/postgres"
)

// Store bundles the repositories of one backend.
type Store struct {
	Backend  string
	Products product.Repository
	Orders   order.Repository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping checks backend connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases backend resources.
func (s *Store) Close(ctx context.Context) error {
	return s.close(ctx)
}

// Open connects to the backend named by the URL scheme:
// mongodb and mongodb+srv, postgres and postgresql, or memory.
func Open(ctx context.Context, rawURL string) (*Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database url")
	}

	switch u.Scheme {
	case "mongodb", "mongodb+srv":
		s, err := mongodb.Open(ctx, rawURL)
		if err != nil {
			return nil, errors.Wrap(err, "open mongodb")
		}
		return &Store{
			Backend:  "mongodb",
			Products: s.Products(),
			Orders:   s.Orders(),
			ping:     s.Ping,
			close:    s.Close,
		}, nil
	case "postgres", "postgresql":
		s, err := postgres.Open(ctx, rawURL)
		if err != nil {
			return nil, errors.Wrap(err, "open postgres")
		}
		return &Store{
			Backend:  "postgres",
			Products: s.Products(),
			Orders:   s.Orders(),
			ping:     s.Ping,
			close:    s.Close,
		}, nil
	case "memory":
		return Memory(memory.New()), nil
	default:
		return nil, errors.Errorf("unsupported database url scheme %q", u.Scheme)
	}
}

// Memory wraps an in-process store.
func Memory(s *memory.Store) *Store {
	noop := func(context.Context) error { return nil }
	return &Store{
		Backend:  "memory",
		Products: s.Products(),
		Orders:   s.Orders(),
		ping:     noop,
		close:    noop,
	}
}
