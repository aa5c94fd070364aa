package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	charm "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cratedeb/cratedeb"
	"github.com/cratedeb/cratedeb/config"
	"github.com/cratedeb/cratedeb/graph"
	"github.com/cratedeb/cratedeb/registry"
)

var (
	verbose     bool
	registryURL string

	configPath string
	outputDir  string
	pkgFormat  string

	resolveType      string
	orderFormat      string
	workers          int
	collapseFeatures bool
	lockPath         string

	diffFormat string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cratedeb",
		Short: "Translate Rust crates into Debian packaging",
		Long: "cratedeb turns crate releases into debian/control stanzas following\n" +
			"the Debian Rust team's conventions, and resolves the order in which\n" +
			"a set of crates has to be built.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().StringVar(&registryURL, "registry", registry.DefaultBaseURL, "Registry base URL")

	packageCmd := &cobra.Command{
		Use:   "package <crate> [version-req]",
		Short: "Generate debian/control stanzas for a crate release",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runPackage,
	}
	packageCmd.Flags().StringVarP(&configPath, "config", "c", "", "Override file (debcargo.toml syntax)")
	packageCmd.Flags().StringVarP(&outputDir, "directory", "d", "", "Write debian/ files under this directory instead of stdout")
	packageCmd.Flags().StringVarP(&pkgFormat, "format", "f", "control", "Output format: control or json")

	buildOrderCmd := &cobra.Command{
		Use:   "build-order [<crate>[@<requirement>]...]",
		Short: "Resolve the order a set of crates has to be built in",
		Args:  cobra.ArbitraryArgs,
		RunE:  runBuildOrder,
	}
	buildOrderCmd.Flags().StringVarP(&resolveType, "resolve-type", "r", "source", "Dependency set: source or binary")
	buildOrderCmd.Flags().StringVarP(&orderFormat, "format", "f", "text", "Output format: text, json, yaml or dot")
	buildOrderCmd.Flags().IntVarP(&workers, "workers", "w", 8, "Parallel fetch workers")
	buildOrderCmd.Flags().BoolVar(&collapseFeatures, "collapse-features", false, "Treat every feature dependency as required")
	buildOrderCmd.Flags().StringVar(&lockPath, "from-lock", "", "Order the crates of a Cargo.lock instead of resolving")

	diffCmd := &cobra.Command{
		Use:   "diff <old Cargo.lock> <new Cargo.lock>",
		Short: "Compare the build orders of two lockfiles",
		Args:  cobra.ExactArgs(2),
		RunE:  runDiff,
	}
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "text", "Output format: text, json or yaml")

	manifestCmd := &cobra.Command{
		Use:   "manifest <path>",
		Short: "Show how a Cargo.toml reads after parsing",
		Args:  cobra.ExactArgs(1),
		RunE:  runManifest,
	}

	rootCmd.AddCommand(packageCmd, buildOrderCmd, diffCmd, manifestCmd)

	if err := rootCmd.Execute(); err != nil {
		logger().Error(err.Error())
		os.Exit(1)
	}
}

// logger bridges the library's slog expectations onto a terminal
// handler. Everything lands on stderr so the generated output stays
// pipeable.
func logger() *slog.Logger {
	opts := charm.Options{Prefix: "cratedeb"}
	if verbose {
		opts.Level = charm.DebugLevel
	}
	return slog.New(charm.NewWithOptions(os.Stderr, opts))
}

func newFetcher() cratedeb.Fetcher {
	inner := cratedeb.NewRegistryFetcher(registry.NewClient(registryURL))
	cache, err := cratedeb.NewLRUCache(4096)
	if err != nil {
		return inner
	}
	return cratedeb.NewCachingFetcher(inner, cache)
}

func reportDiagnostics(log *slog.Logger, diags []cratedeb.Diagnostic) {
	for _, d := range diags {
		attrs := []any{"code", d.Code}
		if d.Fixme {
			attrs = append(attrs, "fixme", true)
		}
		if d.Level == cratedeb.LevelWarning {
			log.Warn(d.Message, attrs...)
		} else {
			log.Info(d.Message, attrs...)
		}
	}
}

func runPackage(cmd *cobra.Command, args []string) error {
	log := logger()
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	for _, key := range cfg.UnknownKeys {
		log.Warn("config key matches nothing and is ignored", "key", key)
	}

	requirement := ""
	if len(args) == 2 {
		requirement = args[1]
	}
	bundle, diags, err := cratedeb.PackageCrate(cmd.Context(), args[0], requirement, cfg,
		cratedeb.WithFetcher(newFetcher()), cratedeb.WithLogger(log))
	if err != nil {
		return err
	}
	reportDiagnostics(log, diags)

	switch pkgFormat {
	case "json":
		return writeBundleJSON(cmd.OutOrStdout(), bundle, diags)
	case "control":
		// handled below
	default:
		return fmt.Errorf("unknown format %q (want control or json)", pkgFormat)
	}

	if outputDir != "" {
		return writeBundleFiles(outputDir, bundle, log)
	}
	out := cmd.OutOrStdout()
	if _, err := out.Write(bundle.Control.Render()); err != nil {
		return err
	}
	if bundle.Tests != nil {
		// deb822 comment line, keeps the two files apart on a terminal.
		if _, err := io.WriteString(out, "\n# debian/tests/control\n\n"); err != nil {
			return err
		}
		if _, err := out.Write(bundle.Tests.Render()); err != nil {
			return err
		}
	}
	return nil
}

func writeBundleFiles(dir string, bundle *cratedeb.ControlBundle, log *slog.Logger) error {
	debianDir := filepath.Join(dir, "debian")
	if err := os.MkdirAll(debianDir, 0o755); err != nil {
		return err
	}
	controlPath := filepath.Join(debianDir, "control")
	if err := bundle.Control.WriteFile(controlPath); err != nil {
		return err
	}
	log.Info("wrote control file", "path", controlPath)

	if bundle.Tests == nil {
		return nil
	}
	testsDir := filepath.Join(debianDir, "tests")
	if err := os.MkdirAll(testsDir, 0o755); err != nil {
		return err
	}
	testsPath := filepath.Join(testsDir, "control")
	if err := bundle.Tests.WriteFile(testsPath); err != nil {
		return err
	}
	log.Info("wrote test suite", "path", testsPath)
	return nil
}

type diagDoc struct {
	Level   string `json:"level"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Fixme   bool   `json:"fixme,omitempty"`
}

func writeBundleJSON(w io.Writer, bundle *cratedeb.ControlBundle, diags []cratedeb.Diagnostic) error {
	doc := struct {
		Control     string    `json:"control"`
		Tests       string    `json:"tests,omitempty"`
		Diagnostics []diagDoc `json:"diagnostics,omitempty"`
	}{
		Control: string(bundle.Control.Render()),
	}
	if bundle.Tests != nil {
		doc.Tests = string(bundle.Tests.Render())
	}
	for _, d := range diags {
		doc.Diagnostics = append(doc.Diagnostics, diagDoc{
			Level:   d.Level.String(),
			Code:    d.Code,
			Message: d.Message,
			Fixme:   d.Fixme,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func runBuildOrder(cmd *cobra.Command, args []string) error {
	log := logger()
	bo, err := resolveOrder(cmd, args, log)
	if err != nil {
		return err
	}
	reportDiagnostics(log, bo.Diagnostics)

	out := cmd.OutOrStdout()
	switch orderFormat {
	case "text":
		_, err = io.WriteString(out, graph.FormatNodes(bo.Order))
	case "json":
		var data []byte
		if data, err = json.MarshalIndent(orderDoc(bo), "", "  "); err == nil {
			data = append(data, '\n')
			_, err = out.Write(data)
		}
	case "yaml":
		var data []byte
		if data, err = yaml.Marshal(orderDoc(bo)); err == nil {
			_, err = out.Write(data)
		}
	case "dot":
		_, err = io.WriteString(out, bo.Graph.ToDOT())
	default:
		return fmt.Errorf("unknown format %q (want text, json, yaml or dot)", orderFormat)
	}
	return err
}

func resolveOrder(cmd *cobra.Command, args []string, log *slog.Logger) (*cratedeb.BuildOrder, error) {
	if lockPath != "" {
		if len(args) > 0 {
			return nil, errors.New("--from-lock orders the whole lockfile, drop the crate arguments")
		}
		return cratedeb.ReadLockfileBuildOrder(lockPath)
	}
	if len(args) == 0 {
		return nil, errors.New("need at least one crate, or --from-lock")
	}

	roots := make([]cratedeb.Root, 0, len(args))
	for _, a := range args {
		root, err := cratedeb.ParseRoot(a)
		if err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}
	mode, err := cratedeb.ParseMode(resolveType)
	if err != nil {
		return nil, err
	}

	opts := []cratedeb.Option{
		cratedeb.WithFetcher(newFetcher()),
		cratedeb.WithLogger(log),
		cratedeb.WithWorkers(workers),
	}
	if collapseFeatures {
		opts = append(opts, cratedeb.WithCollapseFeatures())
	}
	return cratedeb.ResolveBuildOrder(cmd.Context(), roots, mode, opts...)
}

func runDiff(cmd *cobra.Command, args []string) error {
	oldOrder, err := cratedeb.ReadLockfileBuildOrder(args[0])
	if err != nil {
		return err
	}
	newOrder, err := cratedeb.ReadLockfileBuildOrder(args[1])
	if err != nil {
		return err
	}
	diff := cratedeb.DiffBuildOrders(oldOrder, newOrder)

	out := cmd.OutOrStdout()
	switch diffFormat {
	case "text":
		_, err = io.WriteString(out, formatDiff(diff))
	case "json":
		var data []byte
		if data, err = json.MarshalIndent(diff, "", "  "); err == nil {
			data = append(data, '\n')
			_, err = out.Write(data)
		}
	case "yaml":
		var data []byte
		if data, err = yaml.Marshal(diff); err == nil {
			_, err = out.Write(data)
		}
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", diffFormat)
	}
	return err
}

func formatDiff(d *cratedeb.BuildOrderDiff) string {
	if d.IsEmpty() {
		return "no changes\n"
	}
	var b strings.Builder
	for _, c := range d.Added {
		fmt.Fprintf(&b, "+ %s %s\n", c.Name, c.Version)
	}
	for _, c := range d.Removed {
		fmt.Fprintf(&b, "- %s %s\n", c.Name, c.Version)
	}
	for _, u := range d.Upgraded {
		fmt.Fprintf(&b, "  %s %s -> %s\n", u.Name, u.OldVersion, u.NewVersion)
	}
	for _, u := range d.Downgraded {
		fmt.Fprintf(&b, "  %s %s -> %s (downgrade)\n", u.Name, u.OldVersion, u.NewVersion)
	}
	return b.String()
}

// orderDoc pairs the linear order with the graph it came from, for the
// structured output formats.
func orderDoc(bo *cratedeb.BuildOrder) any {
	return struct {
		Order []graph.Node `json:"order" yaml:"order"`
		Graph graph.Doc    `json:"graph" yaml:"graph"`
	}{bo.Order, bo.Graph.Doc()}
}

func runManifest(cmd *cobra.Command, args []string) error {
	meta, err := cratedeb.ParseManifestFile(args[0])
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "name: %s\n", meta.Name)
	fmt.Fprintf(&b, "version: %s\n", meta.Version)
	if meta.Description != "" {
		fmt.Fprintf(&b, "description: %s\n", meta.Description)
	}
	if meta.Homepage != "" {
		fmt.Fprintf(&b, "homepage: %s\n", meta.Homepage)
	}
	fmt.Fprintf(&b, "library: %t\n", meta.HasLib)
	if len(meta.Binaries) > 0 {
		fmt.Fprintf(&b, "binaries: %s\n", strings.Join(meta.Binaries, ", "))
	}

	if len(meta.Dependencies) > 0 {
		b.WriteString("dependencies:\n")
		for _, d := range meta.Dependencies {
			fmt.Fprintf(&b, "  %s %s", d.NameInManifest(), d.Req)
			var notes []string
			if d.Rename != "" {
				notes = append(notes, "crate "+d.Name)
			}
			if d.Kind.String() != "normal" {
				notes = append(notes, d.Kind.String())
			}
			if d.Optional {
				notes = append(notes, "optional")
			}
			if !d.DefaultFeatures {
				notes = append(notes, "no default features")
			}
			if len(d.Features) > 0 {
				notes = append(notes, "features "+strings.Join(d.Features, "+"))
			}
			if d.Target != "" {
				notes = append(notes, "target "+d.Target)
			}
			if len(notes) > 0 {
				fmt.Fprintf(&b, " (%s)", strings.Join(notes, ", "))
			}
			b.WriteByte('\n')
		}
	}

	if len(meta.Features) > 0 {
		b.WriteString("features:\n")
		names := make([]string, 0, len(meta.Features))
		for f := range meta.Features {
			names = append(names, f)
		}
		sort.Strings(names)
		for _, f := range names {
			if edges := meta.Features[f]; len(edges) > 0 {
				fmt.Fprintf(&b, "  %s -> %s\n", f, strings.Join(edges, ", "))
			} else {
				fmt.Fprintf(&b, "  %s\n", f)
			}
		}
	}

	_, err = io.WriteString(cmd.OutOrStdout(), b.String())
	return err
}
