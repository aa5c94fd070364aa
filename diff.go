package cratedeb

import (
	"slices"
	"sort"
	"strings"

	"github.com/cratedeb/cratedeb/crate"
	"github.com/cratedeb/cratedeb/graph"
)

// CrateChange is a crate release present in only one of two build
// orders.
type CrateChange struct {
	// Name is the crate name.
	Name string `json:"name" yaml:"name"`

	// Version is the release version.
	Version string `json:"version" yaml:"version"`
}

// CrateUpgrade is a crate resolved to a different version between two
// build orders.
type CrateUpgrade struct {
	// Name is the crate name.
	Name string `json:"name" yaml:"name"`

	// OldVersion is the version in the old build order.
	OldVersion string `json:"old_version" yaml:"old_version"`

	// NewVersion is the version in the new build order.
	NewVersion string `json:"new_version" yaml:"new_version"`
}

// BuildOrderDiff describes what changed between two build orders. It is
// the thing to look at before kicking off a rebuild: which crates enter
// the set, which leave, and which move to another release.
type BuildOrderDiff struct {
	// Added contains releases present in new but not in old.
	Added []CrateChange `json:"added,omitempty" yaml:"added,omitempty"`

	// Removed contains releases present in old but not in new.
	Removed []CrateChange `json:"removed,omitempty" yaml:"removed,omitempty"`

	// Upgraded contains crates whose new version is higher.
	Upgraded []CrateUpgrade `json:"upgraded,omitempty" yaml:"upgraded,omitempty"`

	// Downgraded contains crates whose new version is lower.
	Downgraded []CrateUpgrade `json:"downgraded,omitempty" yaml:"downgraded,omitempty"`
}

// IsEmpty reports whether the two build orders resolved identically.
func (d *BuildOrderDiff) IsEmpty() bool {
	return len(d.Added) == 0 &&
		len(d.Removed) == 0 &&
		len(d.Upgraded) == 0 &&
		len(d.Downgraded) == 0
}

// TotalChanges returns the number of entries across all four lists.
func (d *BuildOrderDiff) TotalChanges() int {
	return len(d.Added) + len(d.Removed) + len(d.Upgraded) + len(d.Downgraded)
}

// DiffBuildOrders compares two build orders. Nil orders count as empty.
//
// A crate resolved to exactly one version on both sides reports as an
// upgrade or downgrade when the versions differ. A crate resolved to
// several versions on either side, which happens when requirements pin
// different release series of it, reports the per-release additions and
// removals instead: series coexist in the archive, so swapping one out
// is not an upgrade of the others.
//
// All four lists come back sorted by crate name, then version.
func DiffBuildOrders(old, new *BuildOrder) *BuildOrderDiff {
	oldVersions := versionsByCrate(old)
	newVersions := versionsByCrate(new)

	diff := &BuildOrderDiff{}
	for name, newVers := range newVersions {
		oldVers, existed := oldVersions[name]
		if !existed {
			for _, v := range newVers {
				diff.Added = append(diff.Added, CrateChange{Name: name, Version: v})
			}
			continue
		}
		if len(oldVers) == 1 && len(newVers) == 1 {
			if c := compareVersions(newVers[0], oldVers[0]); c > 0 {
				diff.Upgraded = append(diff.Upgraded, CrateUpgrade{
					Name:       name,
					OldVersion: oldVers[0],
					NewVersion: newVers[0],
				})
			} else if c < 0 {
				diff.Downgraded = append(diff.Downgraded, CrateUpgrade{
					Name:       name,
					OldVersion: oldVers[0],
					NewVersion: newVers[0],
				})
			}
			continue
		}
		for _, v := range newVers {
			if !slices.Contains(oldVers, v) {
				diff.Added = append(diff.Added, CrateChange{Name: name, Version: v})
			}
		}
		for _, v := range oldVers {
			if !slices.Contains(newVers, v) {
				diff.Removed = append(diff.Removed, CrateChange{Name: name, Version: v})
			}
		}
	}
	for name, oldVers := range oldVersions {
		if _, exists := newVersions[name]; exists {
			continue
		}
		for _, v := range oldVers {
			diff.Removed = append(diff.Removed, CrateChange{Name: name, Version: v})
		}
	}

	sortChanges(diff.Added)
	sortChanges(diff.Removed)
	sortUpgrades(diff.Upgraded)
	sortUpgrades(diff.Downgraded)
	return diff
}

// versionsByCrate indexes a build order by crate name. The version
// lists keep the order's own sorting, which is already by version for
// equal names.
func versionsByCrate(bo *BuildOrder) map[string][]string {
	if bo == nil {
		return nil
	}
	out := make(map[string][]string, len(bo.Order))
	for _, n := range bo.Order {
		out[n.Name] = append(out[n.Name], n.Version)
	}
	return out
}

// compareVersions falls back to a lexical comparison for versions the
// crate parser rejects, so the diff never fails outright.
func compareVersions(a, b string) int {
	va, errA := crate.ParseVersion(a)
	vb, errB := crate.ParseVersion(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return va.Compare(vb)
}

func sortChanges(changes []CrateChange) {
	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Name != changes[j].Name {
			return changes[i].Name < changes[j].Name
		}
		return changes[i].Version < changes[j].Version
	})
}

func sortUpgrades(upgrades []CrateUpgrade) {
	sort.Slice(upgrades, func(i, j int) bool {
		return upgrades[i].Name < upgrades[j].Name
	})
}

// ChangedNodes returns the releases a rebuild has to cover: everything
// added plus the new side of every upgrade and downgrade.
func (d *BuildOrderDiff) ChangedNodes() []graph.Node {
	var nodes []graph.Node
	for _, c := range d.Added {
		nodes = append(nodes, graph.Node{Name: c.Name, Version: c.Version})
	}
	for _, u := range d.Upgraded {
		nodes = append(nodes, graph.Node{Name: u.Name, Version: u.NewVersion})
	}
	for _, u := range d.Downgraded {
		nodes = append(nodes, graph.Node{Name: u.Name, Version: u.NewVersion})
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Name != nodes[j].Name {
			return nodes[i].Name < nodes[j].Name
		}
		return nodes[i].Version < nodes[j].Version
	})
	return nodes
}
