package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleCatalog = `---
entries:
  - kind: workflow
    source_control: github.com
    organization: {{CATALOG_TEST_ORG}}
    repository: hello
    descriptor_type: WDL
    published: true
    topics:
      automatic: Says hello
    concept_dois:
      - initiator: github
        name: 10.5281/zenodo.100
    default_version: "1.0"
    versions:
      - name: "1.0"
        reference_type: tag
        source_files:
          - path: /Dockstore.wdl
            type: DOCKSTORE_WDL
            verified_by: [TERRA, agc]
  - kind: tool
    registry: quay.io
    namespace: dockstore
    name: bwa
    tool_name: mem
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}
	return path
}

func TestLoaderLoad(t *testing.T) {
	t.Setenv("CATALOG_TEST_ORG", "dockstore")

	cat, err := NewLoader(writeCatalog(t, sampleCatalog)).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cat.Entries) != 2 {
		t.Fatalf("Load() returned %d entries, want 2", len(cat.Entries))
	}
	if got := cat.Entries[0].Organization; got != "dockstore" {
		t.Errorf("organization = %q, want template expanded", got)
	}
	if got := cat.Entries[0].Versions[0].SourceFiles[0].VerifiedBy; len(got) != 2 {
		t.Errorf("verified_by = %v", got)
	}
}

func TestLoaderUnsetTemplateVariable(t *testing.T) {
	cat, err := NewLoader(writeCatalog(t, "entries:\n  - kind: tool\n    name: \"{{CATALOG_TEST_UNSET_VAR}}\"\n")).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cat.Entries[0].Name != "" {
		t.Errorf("name = %q, want empty", cat.Entries[0].Name)
	}
}

func TestLoaderLoadFileNotFound(t *testing.T) {
	if _, err := NewLoader("/nonexistent/path/catalog.yaml").Load(); err == nil {
		t.Error("Load() with non-existent file should return error")
	}
}

func TestLoaderLoadInvalidYAML(t *testing.T) {
	if _, err := NewLoader(writeCatalog(t, "entries: [unclosed\n")).Load(); err == nil {
		t.Error("Load() with invalid YAML should return error")
	}
}
