package lang

import (
	"strings"
	"testing"

	"github.com/crosslang/sdkbench/pkg/errors"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()

	want := []string{"python", "rust", "typescript"}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	for _, name := range want {
		a, err := r.Get(name)
		if err != nil {
			t.Fatalf("Get(%s): %v", name, err)
		}
		if a.Image == "" || a.Repo == "" || a.ReadyPath == "" {
			t.Errorf("%s adapter missing required fields: %+v", name, a)
		}
		if a.ServerCommand == "" || a.ClientCommand == "" {
			t.Errorf("%s adapter missing commands", name)
		}
	}
}

func TestGetUnknownLanguage(t *testing.T) {
	_, err := Default().Get("cobol")
	if err == nil {
		t.Fatal("expected error for unknown language")
	}
	if !errors.Is(err, errors.ErrCodeInvalidLanguage) {
		t.Errorf("error code = %v, want INVALID_LANGUAGE", errors.GetCode(err))
	}
}

func TestRepoOwnerName(t *testing.T) {
	owner, name := Python.RepoOwnerName()
	if owner != "modelcontextprotocol" || name != "python-sdk" {
		t.Errorf("RepoOwnerName = %q/%q", owner, name)
	}
}

func TestPackageSpecs(t *testing.T) {
	tests := []struct {
		adapter *Adapter
		version string
		want    string
	}{
		{Python, "1.2.0", "mcp==1.2.0"},
		{TypeScript, "2.0.0", "@modelcontextprotocol/sdk@2.0.0"},
		{Rust, "0.1.5", `rmcp = "=0.1.5"`},
	}
	for _, tt := range tests {
		if got := tt.adapter.PackageSpec(tt.version); got != tt.want {
			t.Errorf("%s PackageSpec(%s) = %q, want %q", tt.adapter.Name, tt.version, got, tt.want)
		}
	}
}

func TestDistinctDefaultPorts(t *testing.T) {
	seen := map[int]string{}
	for _, name := range Default().Names() {
		a, _ := Default().Get(name)
		if prev, dup := seen[a.DefaultPort]; dup {
			t.Errorf("default port %d shared by %s and %s", a.DefaultPort, prev, name)
		}
		seen[a.DefaultPort] = name
	}
}

func TestAdapterString(t *testing.T) {
	if s := Python.String(); !strings.Contains(s, "python") {
		t.Errorf("String() = %q", s)
	}
}
