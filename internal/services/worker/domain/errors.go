package domain

import "errors"

var (
	// ErrStoreRequired indicates a worker was built without cache storage.
	ErrStoreRequired = errors.New("cache storage is required")
	// ErrFetcherRequired indicates a worker was built without a network fetcher.
	ErrFetcherRequired = errors.New("network fetcher is required")
	// ErrClockRequired indicates a worker was built without a clock.
	ErrClockRequired = errors.New("clock is required")
	// ErrIDGeneratorRequired indicates a worker was built without an id generator.
	ErrIDGeneratorRequired = errors.New("id generator is required")
	// ErrVersionRequired indicates a worker was built without a release version.
	ErrVersionRequired = errors.New("worker version is required")
)
