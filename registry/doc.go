// Package registry provides a typed client for the crates.io HTTP API.
//
// The client covers the three endpoints dependency resolution needs:
//
//	/api/v1/crates/{name}                          crate record + versions
//	/api/v1/crates/{name}/{version}/dependencies   dependency records
//	/api/v1/crates/{name}/{version}/download       .crate tarball
//
// Responses are cached per client instance, so repeatedly resolving the
// same crate costs one request. Structural validation catches payloads
// the API contract forbids before they reach resolution.
//
// # Usage
//
// Fetch a crate and pick a version:
//
//	client := registry.NewClient(registry.DefaultBaseURL)
//	crate, err := client.GetCrate(ctx, "serde")
//	if err != nil {
//	    var rerr *registry.Error
//	    if errors.As(err, &rerr) && rerr.NotFound() {
//	        // no such crate
//	    }
//	}
//
// Validate an arbitrary payload:
//
//	resp, err := registry.ValidateCrateJSON(data)
package registry
