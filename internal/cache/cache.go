// Package cache provee un cache efímero con TTL y soporte multi-backend.
//
// Soporta:
//   - Memory (in-process, para desarrollo/testing)
//   - Redis (distribuido, para producción)
//
// El store de PKCE se apoya en Take (delete-on-read) para garantizar
// consumo único de un verifier por state.
package cache

import (
	"context"
	"errors"
	"time"
)

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe o expiró.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor con TTL. Si ttl es 0, usa el default del driver.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Take obtiene y elimina atómicamente un valor (consumo único).
	// Retorna ErrNotFound si no existe o expiró.
	Take(ctx context.Context, key string) (string, error)

	// Delete elimina una key.
	Delete(ctx context.Context, key string) error

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error
}

// ErrNotFound indica que la key no existe o ya expiró.
var ErrNotFound = errors.New("cache: key not found")
