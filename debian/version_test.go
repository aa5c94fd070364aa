package debian

import "testing"

func TestUpstreamVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"1.2.3", "1.2.3", false},
		{"1.2", "1.2.0", false},
		{"1", "1.0.0", false},
		{"0.3.7", "0.3.7", false},
		{"1.2.3-alpha.1", "1.2.3~alpha.1", false},
		{"1.0.0-rc1", "1.0.0~rc1", false},
		{"1.2-beta", "1.2.0~beta", false},
		{"1.2.3+build.5", "1.2.3", false},
		{"1.2.3-beta+build", "1.2.3~beta", false},
		{"", "", true},
		{"1.2.3.4", "", true},
		{"1.x", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := UpstreamVersion(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("UpstreamVersion(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Errorf("UpstreamVersion(%q) unexpected error: %v", tt.input, err)
				return
			}
			if got != tt.want {
				t.Errorf("UpstreamVersion(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "1.0.1", -1},
		{"1.2.10", "1.2.9", 1},
		// A ~ tag sorts before the final release.
		{"1.0.0~alpha", "1.0.0", -1},
		{"1.0.0~alpha", "1.0.0~beta", -1},
		// The -~~ pseudo-revision sorts before any real revision and
		// before the bare version.
		{"1.0.0-~~", "1.0.0-1", -1},
		{"1.0.0-~~", "1.0.0", -1},
		{"1.0.0", "1.0.0-~~", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			got, err := CompareVersions(tt.a, tt.b)
			if err != nil {
				t.Fatalf("CompareVersions(%q, %q) unexpected error: %v", tt.a, tt.b, err)
			}
			if got != tt.want {
				t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestValidateVersion(t *testing.T) {
	if err := ValidateVersion("1.2.3-1"); err != nil {
		t.Errorf("ValidateVersion(%q) unexpected error: %v", "1.2.3-1", err)
	}
	if err := ValidateVersion("not a version"); err == nil {
		t.Errorf("ValidateVersion(%q) expected error", "not a version")
	}
}
