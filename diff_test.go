package cratedeb

import (
	"slices"
	"strings"
	"testing"

	"github.com/cratedeb/cratedeb/graph"
)

func orderOf(pairs ...string) *BuildOrder {
	bo := &BuildOrder{}
	for _, p := range pairs {
		name, version, ok := strings.Cut(p, " ")
		if !ok {
			panic("node needs a name and a version: " + p)
		}
		bo.Order = append(bo.Order, graph.Node{Name: name, Version: version})
	}
	return bo
}

func TestDiffBuildOrdersNilAndEmpty(t *testing.T) {
	tests := []struct {
		name string
		old  *BuildOrder
		new  *BuildOrder
	}{
		{"both nil", nil, nil},
		{"old nil", nil, &BuildOrder{}},
		{"new nil", &BuildOrder{}, nil},
		{"both empty", &BuildOrder{}, &BuildOrder{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := DiffBuildOrders(tt.old, tt.new)
			if diff == nil {
				t.Fatal("DiffBuildOrders returned nil")
			}
			if !diff.IsEmpty() {
				t.Errorf("diff = %+v, want empty", diff)
			}
		})
	}
}

func TestDiffBuildOrdersIdentical(t *testing.T) {
	old := orderOf("itoa 1.0.11", "serde 1.0.200")
	diff := DiffBuildOrders(old, orderOf("serde 1.0.200", "itoa 1.0.11"))
	if !diff.IsEmpty() {
		t.Errorf("diff = %+v, want empty, order of the list must not matter", diff)
	}
	if diff.TotalChanges() != 0 {
		t.Errorf("TotalChanges() = %d, want 0", diff.TotalChanges())
	}
}

func TestDiffBuildOrdersAdded(t *testing.T) {
	old := orderOf("serde 1.0.200")
	new := orderOf("serde 1.0.200", "itoa 1.0.11", "ryu 1.0.17")

	diff := DiffBuildOrders(old, new)
	want := []CrateChange{
		{Name: "itoa", Version: "1.0.11"},
		{Name: "ryu", Version: "1.0.17"},
	}
	if !slices.Equal(diff.Added, want) {
		t.Errorf("added = %+v, want %+v", diff.Added, want)
	}
	if len(diff.Removed) != 0 || len(diff.Upgraded) != 0 || len(diff.Downgraded) != 0 {
		t.Errorf("diff = %+v, want additions only", diff)
	}
}

func TestDiffBuildOrdersRemoved(t *testing.T) {
	old := orderOf("serde 1.0.200", "itoa 1.0.11", "ryu 1.0.17")
	new := orderOf("serde 1.0.200")

	diff := DiffBuildOrders(old, new)
	want := []CrateChange{
		{Name: "itoa", Version: "1.0.11"},
		{Name: "ryu", Version: "1.0.17"},
	}
	if !slices.Equal(diff.Removed, want) {
		t.Errorf("removed = %+v, want %+v", diff.Removed, want)
	}
	if len(diff.Added) != 0 {
		t.Errorf("added = %+v, want none", diff.Added)
	}
}

func TestDiffBuildOrdersUpgradedAndDowngraded(t *testing.T) {
	old := orderOf("serde 1.0.100", "rand 0.8.5", "itoa 0.9.0")
	new := orderOf("serde 1.0.200", "rand 0.7.3", "itoa 0.10.0")

	diff := DiffBuildOrders(old, new)

	wantUp := []CrateUpgrade{
		// 0.10.0 sorts before 0.9.0 lexically; the comparison has to
		// be numeric.
		{Name: "itoa", OldVersion: "0.9.0", NewVersion: "0.10.0"},
		{Name: "serde", OldVersion: "1.0.100", NewVersion: "1.0.200"},
	}
	if !slices.Equal(diff.Upgraded, wantUp) {
		t.Errorf("upgraded = %+v, want %+v", diff.Upgraded, wantUp)
	}
	wantDown := []CrateUpgrade{
		{Name: "rand", OldVersion: "0.8.5", NewVersion: "0.7.3"},
	}
	if !slices.Equal(diff.Downgraded, wantDown) {
		t.Errorf("downgraded = %+v, want %+v", diff.Downgraded, wantDown)
	}
	if diff.TotalChanges() != 3 {
		t.Errorf("TotalChanges() = %d, want 3", diff.TotalChanges())
	}
}

// Requirements pinning different release series resolve the same crate
// to several versions at once. Those report as per-release additions
// and removals, never as upgrades.
func TestDiffBuildOrdersCoexistingSeries(t *testing.T) {
	diff := DiffBuildOrders(
		orderOf("nom 7.1.3"),
		orderOf("nom 7.1.3", "nom 8.0.0"),
	)
	want := []CrateChange{{Name: "nom", Version: "8.0.0"}}
	if !slices.Equal(diff.Added, want) {
		t.Errorf("added = %+v, want %+v", diff.Added, want)
	}
	if len(diff.Upgraded) != 0 {
		t.Errorf("upgraded = %+v, want none", diff.Upgraded)
	}

	diff = DiffBuildOrders(
		orderOf("nom 7.1.1", "nom 8.0.0"),
		orderOf("nom 7.1.3", "nom 8.0.0"),
	)
	if !slices.Equal(diff.Added, []CrateChange{{Name: "nom", Version: "7.1.3"}}) {
		t.Errorf("added = %+v", diff.Added)
	}
	if !slices.Equal(diff.Removed, []CrateChange{{Name: "nom", Version: "7.1.1"}}) {
		t.Errorf("removed = %+v", diff.Removed)
	}
	if diff.TotalChanges() != 2 {
		t.Errorf("TotalChanges() = %d, want 2", diff.TotalChanges())
	}
}

func TestDiffBuildOrdersChangedNodes(t *testing.T) {
	old := orderOf("serde 1.0.100", "itoa 1.0.11", "ryu 1.0.17")
	new := orderOf("serde 1.0.200", "itoa 1.0.11", "zerocopy 0.7.32")

	diff := DiffBuildOrders(old, new)
	want := []graph.Node{
		{Name: "serde", Version: "1.0.200"},
		{Name: "zerocopy", Version: "0.7.32"},
	}
	if got := diff.ChangedNodes(); !slices.Equal(got, want) {
		t.Errorf("ChangedNodes() = %v, want %v", got, want)
	}
}
