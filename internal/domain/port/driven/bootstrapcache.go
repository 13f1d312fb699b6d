package driven

import "github.com/ericfisherdev/cookierelay/internal/domain/model"

// BootstrapCache defines the driven port for the same-host fallback copy of
// the credential. The refresh procedure reads it when the shared store is
// unreachable or empty and writes it ahead of the store on every successful
// refresh. The cache file is owned exclusively by the sandbox that hosts the
// refresh procedure.
type BootstrapCache interface {
	// Load returns the cached record, or (nil, nil) when no cache file exists.
	Load() (*model.CredentialRecord, error)

	// Save atomically replaces the cache file with the given record.
	Save(rec model.CredentialRecord) error
}
