package store

// Errors
var (
	ErrNotFound   = &StoreError{"report not found"}
	ErrInvalidID  = &StoreError{"invalid report id"}
	ErrCorruption = &StoreError{"data corruption detected"}
	ErrClosed     = &StoreError{"store is closed"}
)

// StoreError represents a report store error
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}

// Config holds configuration for the report store
type Config struct {
	Dir         string         // Directory holding the pebble database
	Compression CompressionTag // Compression applied to stored documents
}
