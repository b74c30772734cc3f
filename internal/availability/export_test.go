package availability

// NewMemStore exposes the in-memory store to the availability_test package.
func NewMemStore() Store { return newMemStore() }
