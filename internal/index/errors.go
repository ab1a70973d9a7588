package index

import "errors"

var (
	// ErrIndexNotFound means no persisted index artifacts exist at the
	// configured location. Fixable by running ingestion.
	ErrIndexNotFound = errors.New("index artifacts not found")

	// ErrIndexCorrupt means the vector and chunk artifacts disagree and
	// cannot be loaded. Fatal until the index is rebuilt.
	ErrIndexCorrupt = errors.New("index artifacts are inconsistent")

	// ErrIndexNotLoaded means Search was called before a successful
	// Build or Load.
	ErrIndexNotLoaded = errors.New("index not loaded")

	// ErrEmptyBuild means Build was called with zero chunks.
	ErrEmptyBuild = errors.New("cannot build index from zero chunks")

	// ErrDimensionMismatch means an embedding does not match the
	// dimension fixed at build time.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
