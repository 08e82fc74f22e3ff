package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPanelsFromDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "perspective.png"), "png-bytes")
	writeFile(t, filepath.Join(dir, "ground_floor_plan.SVG"), "<svg/>")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, "README.md"), "ignored")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	panels, err := panelsFromDir(dir)
	if err != nil {
		t.Fatalf("panelsFromDir() error = %v", err)
	}
	if len(panels) != 2 {
		t.Fatalf("got %d panels, want 2", len(panels))
	}
	// Sorted by key.
	if panels[0].RawKey != "ground_floor_plan" || panels[1].RawKey != "perspective" {
		t.Errorf("keys = %q, %q", panels[0].RawKey, panels[1].RawKey)
	}
	if string(panels[0].Data) != "<svg/>" {
		t.Errorf("data not loaded: %q", panels[0].Data)
	}
}

func TestPanelsFromProject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "hero.png"), "png-bytes")
	writeFile(t, filepath.Join(dir, "project.toml"), `
title = "Brick House"
client = "ACME"
floors = 2
template = "compact"

[[panels]]
key = "perspective"
file = "hero.png"

[[panels]]
key = "ground_floor_plan"
url = "https://cdn.example.com/plan.svg"
`)

	panels, project, err := panelsFromProject(filepath.Join(dir, "project.toml"))
	if err != nil {
		t.Fatalf("panelsFromProject() error = %v", err)
	}
	if project.Title != "Brick House" || project.Client != "ACME" {
		t.Errorf("project metadata = %+v", project)
	}
	if project.Floors != 2 || project.Template != "compact" {
		t.Errorf("project layout settings = %+v", project)
	}
	if len(panels) != 2 {
		t.Fatalf("got %d panels, want 2", len(panels))
	}
	if string(panels[0].Data) != "png-bytes" {
		t.Errorf("file panel not resolved relative to project dir")
	}
	if panels[1].URL != "https://cdn.example.com/plan.svg" {
		t.Errorf("url panel = %+v", panels[1])
	}
}

func TestPanelsFromProjectMissingSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "project.toml"), `
[[panels]]
key = "perspective"
`)

	if _, _, err := panelsFromProject(filepath.Join(dir, "project.toml")); err == nil {
		t.Error("panel without file or url should be rejected")
	}
}

func TestManifestPathFor(t *testing.T) {
	tests := []struct {
		output string
		want   string
	}{
		{"sheet.png", "sheet_manifest.json"},
		{"out/final.png", "out/final_manifest.json"},
		{"noext", "noext_manifest.json"},
	}
	for _, tt := range tests {
		if got := manifestPathFor(tt.output); got != tt.want {
			t.Errorf("manifestPathFor(%q) = %q, want %q", tt.output, got, tt.want)
		}
	}
}
