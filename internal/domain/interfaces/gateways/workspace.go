package gateways

// Workspace hands out scoped temporary directories. The caller that
// acquires a directory must call release when done with it.
type Workspace interface {
	Acquire(prefix string) (dir string, release func(), err error)
}
