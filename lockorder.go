package cratedeb

import (
	"github.com/cratedeb/cratedeb/lockfile"
)

// BuildOrderFromLockfile derives a build order from an existing
// Cargo.lock instead of resolving against a registry.
//
// A lockfile pins the union of every feature's dependencies for the
// workspace it belongs to, so the result matches collapsed discovery
// over the workspace members. No fetcher and no network are involved,
// and no diagnostics arise: whatever cargo wrote is taken at face
// value.
func BuildOrderFromLockfile(lf *lockfile.Lockfile) (*BuildOrder, error) {
	g, err := lf.Graph()
	if err != nil {
		return nil, err
	}
	order, err := orderGraph(g)
	if err != nil {
		return nil, err
	}
	return &BuildOrder{Order: order, Graph: g}, nil
}

// ReadLockfileBuildOrder reads a Cargo.lock from disk and derives its
// build order.
func ReadLockfileBuildOrder(path string) (*BuildOrder, error) {
	lf, err := lockfile.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return BuildOrderFromLockfile(lf)
}
