package registry

// CrateResponse is the /api/v1/crates/{name} document: the crate
// record plus every published version, newest first.
type CrateResponse struct {
	Crate CrateData `json:"crate"`

	// Versions lists the published releases in the registry's order,
	// highest version first.
	Versions []VersionData `json:"versions"`
}

// CrateData is the crate record inside a CrateResponse.
type CrateData struct {
	// Name is the crate's registry name.
	Name string `json:"name"`

	// Description is the free-form description from the manifest.
	Description string `json:"description,omitempty"`

	// Homepage is the project homepage URL, if declared.
	Homepage string `json:"homepage,omitempty"`

	// Repository is the source repository URL, if declared.
	Repository string `json:"repository,omitempty"`

	// MaxVersion is the highest published version, yanked or not.
	MaxVersion string `json:"max_version,omitempty"`
}

// VersionData is one published release of a crate.
type VersionData struct {
	// Num is the release's version number.
	Num string `json:"num"`

	// Yanked releases stay downloadable but must not be picked by new
	// resolutions.
	Yanked bool `json:"yanked"`

	// Features maps each declared feature to its raw edge list, as the
	// manifest wrote it.
	Features map[string][]string `json:"features,omitempty"`
}

// DependenciesResponse is the /dependencies document of one release.
type DependenciesResponse struct {
	Dependencies []DependencyData `json:"dependencies"`
}

// Dependency kinds as the registry spells them.
const (
	KindNormal = "normal"
	KindBuild  = "build"
	KindDev    = "dev"
)

// DependencyData is one dependency record of a release.
type DependencyData struct {
	// CrateID is the dependency's registry name.
	CrateID string `json:"crate_id"`

	// Req is the declared version requirement, e.g. "^1.2".
	Req string `json:"req"`

	// Optional dependencies are activated through features only.
	Optional bool `json:"optional"`

	// DefaultFeatures is false when the manifest opts out of the
	// dependency's default features.
	DefaultFeatures bool `json:"default_features"`

	// Features lists the dependency features the manifest asks for.
	Features []string `json:"features,omitempty"`

	// Target is the cfg expression of a target-specific dependency.
	Target string `json:"target,omitempty"`

	// Kind is "normal", "build" or "dev".
	Kind string `json:"kind"`
}

// Version returns the record for a version number.
func (r *CrateResponse) Version(num string) (*VersionData, bool) {
	for i := range r.Versions {
		if r.Versions[i].Num == num {
			return &r.Versions[i], true
		}
	}
	return nil, false
}

// HasVersion reports whether the release exists, yanked or not.
func (r *CrateResponse) HasVersion(num string) bool {
	_, ok := r.Version(num)
	return ok
}

// IsYanked reports whether the given release is yanked. Unknown
// versions count as yanked: they must not be picked either.
func (r *CrateResponse) IsYanked(num string) bool {
	v, ok := r.Version(num)
	return !ok || v.Yanked
}

// NonYankedVersions returns the pickable releases, registry order
// preserved.
func (r *CrateResponse) NonYankedVersions() []VersionData {
	out := make([]VersionData, 0, len(r.Versions))
	for _, v := range r.Versions {
		if !v.Yanked {
			out = append(out, v)
		}
	}
	return out
}

// LatestVersion returns the newest release number, yanked or not,
// empty when the crate has no releases.
func (r *CrateResponse) LatestVersion() string {
	if len(r.Versions) == 0 {
		return ""
	}
	return r.Versions[0].Num
}

// IsDev reports whether the dependency only matters for tests and
// benches.
func (d *DependencyData) IsDev() bool {
	return d.Kind == KindDev
}
