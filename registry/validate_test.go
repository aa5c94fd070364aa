package registry

import (
	"strings"
	"testing"
)

func TestCrateResponseValidate(t *testing.T) {
	valid := func() *CrateResponse {
		return &CrateResponse{
			Crate:    CrateData{Name: "serde"},
			Versions: []VersionData{{Num: "1.0.100"}},
		}
	}

	tests := []struct {
		name      string
		mutate    func(*CrateResponse)
		wantField string
	}{
		{
			name:   "valid",
			mutate: func(r *CrateResponse) {},
		},
		{
			name:      "missing name",
			mutate:    func(r *CrateResponse) { r.Crate.Name = "" },
			wantField: "crate.name",
		},
		{
			name:      "bad name",
			mutate:    func(r *CrateResponse) { r.Crate.Name = "no spaces allowed" },
			wantField: "crate.name",
		},
		{
			name:      "no versions",
			mutate:    func(r *CrateResponse) { r.Versions = nil },
			wantField: "versions",
		},
		{
			name:      "empty version num",
			mutate:    func(r *CrateResponse) { r.Versions[0].Num = "" },
			wantField: "versions[0].num",
		},
		{
			name:      "truncated version num",
			mutate:    func(r *CrateResponse) { r.Versions[0].Num = "1.0" },
			wantField: "versions[0].num",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			err := r.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("Validate() = %q, want mention of %q", err, tt.wantField)
			}
		})
	}
}

func TestDependenciesResponseValidate(t *testing.T) {
	tests := []struct {
		name      string
		dep       DependencyData
		wantField string
	}{
		{
			name: "valid",
			dep:  DependencyData{CrateID: "libc", Req: "^0.2", Kind: KindNormal},
		},
		{
			name:      "missing crate_id",
			dep:       DependencyData{Req: "^0.2", Kind: KindNormal},
			wantField: "dependencies[0].crate_id",
		},
		{
			name:      "missing req",
			dep:       DependencyData{CrateID: "libc", Kind: KindBuild},
			wantField: "dependencies[0].req",
		},
		{
			name:      "unknown kind",
			dep:       DependencyData{CrateID: "libc", Req: "^0.2", Kind: "runtime"},
			wantField: "dependencies[0].kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &DependenciesResponse{Dependencies: []DependencyData{tt.dep}}
			err := r.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.wantField)
			}
		})
	}
}

func TestValidationErrorsRendering(t *testing.T) {
	var errs ValidationErrors
	if errs.ToError() != nil {
		t.Error("empty ValidationErrors should convert to nil")
	}

	errs.Add("crate.name", "required field is missing")
	if got := errs.Error(); got != "crate.name: required field is missing" {
		t.Errorf("single error rendering = %q", got)
	}

	errs.Add("versions", "required field is missing or empty")
	got := errs.Error()
	if !strings.HasPrefix(got, "2 validation errors:") {
		t.Errorf("multi error rendering = %q", got)
	}
	if len(errs.Unwrap()) != 2 {
		t.Errorf("Unwrap() returned %d errors, want 2", len(errs.Unwrap()))
	}
}

func TestValidateCrateJSON(t *testing.T) {
	good := `{"crate": {"name": "serde"}, "versions": [{"num": "1.0.0"}]}`
	resp, err := ValidateCrateJSON([]byte(good))
	if err != nil {
		t.Fatalf("ValidateCrateJSON: %v", err)
	}
	if resp.Crate.Name != "serde" {
		t.Errorf("name = %q", resp.Crate.Name)
	}

	if _, err := ValidateCrateJSON([]byte(`{"crate": {`)); err == nil {
		t.Error("malformed JSON accepted")
	}
	if _, err := ValidateCrateJSON([]byte(`{"crate": {"name": ""}, "versions": []}`)); err == nil {
		t.Error("invalid document accepted")
	}
}
