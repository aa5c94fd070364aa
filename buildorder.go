package cratedeb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cratedeb/cratedeb/crate"
	"github.com/cratedeb/cratedeb/graph"
)

const defaultMaxConcurrency = 5

// BuildOrder is the result of resolving an archive-wide build
// ordering.
type BuildOrder struct {
	// Order lists every crate release reached, dependencies before
	// dependents. Independent crates appear in lexical order.
	Order []graph.Node

	// Graph is the hard-dependency graph the order was derived from.
	Graph *graph.Graph

	// Diagnostics collects non-fatal findings, deduplicated across all
	// crates visited.
	Diagnostics []Diagnostic
}

// ResolveBuildOrder walks the dependency closure of the given root
// crates and returns the order in which the closure has to be
// packaged.
//
// Discovery proceeds per (crate release, feature) pair: a dependency
// edge requesting a feature only pulls in what that feature activates,
// not the whole target crate. Building a release compiles its default
// features, so each release's ordering constraints are the
// dependencies of the requested feature plus the default closure. In
// BinaryAllDeps mode the remaining feature-reachable dependencies are
// followed too, joining the order without constraining it.
//
// Dependencies are fetched concurrently. The result is independent of
// fetch interleaving: edges are projected onto whole releases, and
// ties are broken lexically.
func ResolveBuildOrder(ctx context.Context, roots []Root, mode Mode, opts ...Option) (*BuildOrder, error) {
	cfg, err := newOpConfig(opts...)
	if err != nil {
		return nil, err
	}
	if cfg.fetcher == nil {
		return nil, errors.New("build-order resolution needs a fetcher, set one with WithFetcher")
	}
	if len(roots) == 0 {
		return nil, errors.New("no root crates given")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Invocation-scoped cache: every (crate, version) is fetched once
	// no matter how many feature states touch it.
	fetch := NewCachingFetcher(cfg.fetcher, NewMemoryCache())
	log := cfg.log()

	var (
		mu           sync.Mutex
		builder      = graph.NewBuilder()
		seenDangling = make(map[danglingKey]bool)
	)

	var errOnce sync.Once
	var firstErr error
	setErr := func(err error) {
		if err == nil {
			return
		}
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	type crateState struct {
		node    graph.Node
		feature string
	}

	visiting := &sync.Map{}
	tasks := make(chan crateState, cfg.workers)
	var tasksWG sync.WaitGroup
	var workersWG sync.WaitGroup

	enqueue := func(s crateState) {
		if ctx.Err() != nil {
			return
		}
		key := s.node.Name + "\x1f" + s.node.Version + "\x1f" + s.feature
		if _, visited := visiting.LoadOrStore(key, struct{}{}); visited {
			return
		}
		tasksWG.Add(1)
		select {
		case tasks <- s:
		case <-ctx.Done():
			tasksWG.Done()
		default:
			// Queue full and every worker busy. Park the send in its
			// own goroutine so a worker never blocks on its own queue.
			go func() {
				select {
				case tasks <- s:
				case <-ctx.Done():
					tasksWG.Done()
				}
			}()
		}
	}

	resolveDep := func(d crate.Dependency) (graph.Node, error) {
		meta, err := fetch.Fetch(ctx, d.Name, d.Req)
		if err != nil {
			return graph.Node{}, err
		}
		return graph.Node{Name: meta.Name, Version: meta.Version.String()}, nil
	}

	process := func(state crateState) error {
		exact, err := crate.ParseRequirement("=" + state.node.Version)
		if err != nil {
			return err
		}
		meta, err := fetch.Fetch(ctx, state.node.Name, exact)
		if err != nil {
			return err
		}
		fg, dangling := crate.NewFeatureGraph(meta)
		hard, soft := modeDeps(fg, state.feature, mode, cfg.collapseFeatures)

		log.Debug("processing crate",
			"crate", state.node.Name,
			"version", state.node.Version,
			"feature", state.feature,
			"hard", len(hard),
			"soft", len(soft))

		if len(dangling) > 0 {
			mu.Lock()
			for _, d := range dangling {
				seenDangling[danglingKey{state.node.Name, d.Feature, d.Ref}] = true
			}
			mu.Unlock()
		}

		for _, d := range hard {
			child, err := resolveDep(d)
			if err != nil {
				return err
			}
			mu.Lock()
			builder.AddEdge(state.node, child)
			mu.Unlock()
			for _, f := range depFeatures(d) {
				enqueue(crateState{node: child, feature: f})
			}
		}
		for _, d := range soft {
			child, err := resolveDep(d)
			if err != nil {
				return err
			}
			mu.Lock()
			builder.AddNode(child)
			mu.Unlock()
			for _, f := range depFeatures(d) {
				enqueue(crateState{node: child, feature: f})
			}
		}
		return nil
	}

	worker := func() {
		defer workersWG.Done()
		for state := range tasks {
			if ctx.Err() != nil {
				tasksWG.Done()
				continue
			}
			if err := process(state); err != nil {
				setErr(err)
			}
			tasksWG.Done()
		}
	}

	seeds := make([]crateState, 0, len(roots))
	for _, root := range roots {
		meta, err := fetch.Fetch(ctx, root.Name, root.Req)
		if err != nil {
			return nil, fmt.Errorf("resolve root %s: %w", root.Name, err)
		}
		node := graph.Node{Name: meta.Name, Version: meta.Version.String()}
		builder.AddRoot(node)
		seeds = append(seeds, crateState{node: node})
		log.Info("resolved root crate", "crate", node.Name, "version", node.Version)
	}

	for i := 0; i < cfg.workers; i++ {
		workersWG.Add(1)
		go worker()
	}
	for _, s := range seeds {
		enqueue(s)
	}
	go func() {
		tasksWG.Wait()
		close(tasks)
	}()
	workersWG.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g := builder.Build()
	order, err := orderGraph(g)
	if err != nil {
		return nil, err
	}

	log.Info("build order resolved",
		"mode", mode.String(),
		"crates", len(order),
		"warnings", len(seenDangling))

	return &BuildOrder{
		Order:       order,
		Graph:       g,
		Diagnostics: danglingDiagnostics(seenDangling),
	}, nil
}

// orderGraph linearizes a sealed graph, turning an unorderable graph
// into a cycle error.
func orderGraph(g *graph.Graph) ([]graph.Node, error) {
	order, blocked := g.Toposort()
	if len(blocked) == 0 {
		return order, nil
	}
	if cycles := g.FindCycles(); len(cycles) > 0 {
		return nil, &DependencyCycleError{Cycle: cycles[0]}
	}
	return nil, fmt.Errorf("dependency graph admits no order, %d crates blocked", len(blocked))
}

type danglingKey struct {
	crate   string
	feature string
	ref     string
}

func danglingDiagnostics(seen map[danglingKey]bool) []Diagnostic {
	keys := make([]danglingKey, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.crate != b.crate {
			return a.crate < b.crate
		}
		if a.feature != b.feature {
			return a.feature < b.feature
		}
		return a.ref < b.ref
	})
	diags := make([]Diagnostic, 0, len(keys))
	for _, k := range keys {
		diags = append(diags, warnf(CodeDanglingFeature,
			"crate %s: feature %q references %q, which the manifest does not declare", k.crate, k.feature, k.ref))
	}
	return diags
}

// modeDeps splits one feature state's dependencies into the set the
// build order must respect and the set that is merely followed.
//
// Building a release's source package compiles its default features,
// so the hard set unions the requested feature's closure with the
// default closure. Collapsed discovery widens that to every
// dependency any feature can activate. BinaryAllDeps returns the
// remaining feature-reachable dependencies as the soft set.
func modeDeps(fg *crate.FeatureGraph, feature string, mode Mode, collapse bool) (hard, soft []crate.Dependency) {
	all := allDeps(fg)

	hardSet := make(map[string]crate.Dependency)
	for _, d := range fg.Closure(feature).Dependencies {
		hardSet[d.Key()] = d
	}
	if collapse {
		for _, d := range all {
			hardSet[d.Key()] = d
		}
	} else {
		for _, d := range fg.Closure("default").Dependencies {
			hardSet[d.Key()] = d
		}
	}

	hard = make([]crate.Dependency, 0, len(hardSet))
	for _, d := range hardSet {
		hard = append(hard, d)
	}
	sort.Slice(hard, func(i, j int) bool { return hard[i].Key() < hard[j].Key() })

	if mode != BinaryAllDeps {
		return hard, nil
	}
	for _, d := range all {
		if _, ok := hardSet[d.Key()]; !ok {
			soft = append(soft, d)
		}
	}
	return hard, soft
}

// allDeps unions every feature vertex's dependency list.
func allDeps(fg *crate.FeatureGraph) []crate.Dependency {
	seen := make(map[string]bool)
	var out []crate.Dependency
	for _, f := range fg.Features() {
		_, deps, _ := fg.Vertex(f)
		for _, d := range deps {
			if seen[d.Key()] {
				continue
			}
			seen[d.Key()] = true
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// depFeatures lists the feature states a dependency edge activates in
// its target: the requested features, "default" unless opted out, and
// always the unconditional "".
func depFeatures(d crate.Dependency) []string {
	out := make([]string, 0, len(d.Features)+2)
	out = append(out, d.Features...)
	if d.DefaultFeatures {
		out = append(out, "default")
	}
	return append(out, "")
}
