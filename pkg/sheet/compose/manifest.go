package compose

import (
	"encoding/json"
	"os"
	"time"
)

// Manifest is the JSON record written next to the output image. It lets
// downstream tooling (print export, review dashboards) reuse placements
// and audit substitutions without re-running composition.
type Manifest struct {
	Version     string    `json:"version"`
	SheetID     string    `json:"sheet_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Template string `json:"template"`
	Tier     string `json:"tier"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`

	TitleBlock TitleBlockRecord `json:"title_block"`

	Panels        map[string]PanelRecord `json:"panels"`
	Substitutions []string               `json:"substitutions"`
	Warnings      []string               `json:"warnings"`
}

// TitleBlockRecord echoes the generated title block content.
type TitleBlockRecord struct {
	Title         string `json:"title"`
	Client        string `json:"client,omitempty"`
	ProjectNumber string `json:"project_number,omitempty"`
	FloorCount    int    `json:"floor_count"`
	Date          string `json:"date"`
}

// manifestVersion tracks the manifest schema.
const manifestVersion = "1"

// BuildManifest assembles the manifest for a composed sheet.
func BuildManifest(s *Sheet, opts Options) Manifest {
	title := opts.Title
	if title == "" {
		title = "Architectural Design"
	}
	subs := s.Substitutions
	if subs == nil {
		subs = []string{}
	}
	warnings := s.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return Manifest{
		Version:     manifestVersion,
		SheetID:     s.SheetID,
		GeneratedAt: time.Now().UTC(),
		Template:    s.TemplateUsed,
		Tier:        s.Tier,
		Width:       s.Width,
		Height:      s.Height,
		TitleBlock: TitleBlockRecord{
			Title:         title,
			Client:        opts.Client,
			ProjectNumber: opts.ProjectNumber,
			FloorCount:    opts.FloorCount,
			Date:          time.Now().Format("2006-01-02"),
		},
		Panels:        s.Panels,
		Substitutions: subs,
		Warnings:      warnings,
	}
}

// WriteManifest writes the manifest as indented JSON.
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
