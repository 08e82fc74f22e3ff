package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/genarch/sheetpress/pkg/cache"
	"github.com/genarch/sheetpress/pkg/fetch"
	"github.com/genarch/sheetpress/pkg/sheet/catalog"
	"github.com/genarch/sheetpress/pkg/sheet/compose"
)

// panelExts maps accepted panel file extensions to inclusion.
var panelExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".svg": true}

// composeOpts holds the command-line flags for the compose command.
type composeOpts struct {
	output        string  // output sheet path
	manifestOut   string  // manifest path (derived from output when empty)
	template      string  // layout template name or alias
	floors        int     // building floor count (prunes upper-floor slots)
	tier          string  // output tier: preview or print
	workers       int     // per-slot worker pool size
	disableQA     bool    // skip occupancy and render-sanity gates
	title         string  // sheet title
	client        string  // client name for the title block
	projectNumber string  // project number for the title block
	north         float64 // north direction in degrees clockwise from up
	catalogPath   string  // optional catalog override file
	noCache       bool    // disable the fetch cache
	redisAddr     string  // shared Redis fetch cache (host:port)
}

// newComposeCmd creates the compose command. The single argument is either
// a directory of panel images (file stem becomes the panel key) or a TOML
// project file that lists panels and title block metadata.
func newComposeCmd() *cobra.Command {
	opts := composeOpts{
		output: "sheet.png",
		floors: compose.DefaultFloorCount,
	}

	cmd := &cobra.Command{
		Use:   "compose [panels-dir | project.toml]",
		Short: "Compose panel images into a presentation sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompose(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", opts.output, "output sheet path")
	cmd.Flags().StringVar(&opts.manifestOut, "manifest", "", "manifest path (default: output base + _manifest.json)")
	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "layout template: presentation (default), compact, portfolio")
	cmd.Flags().IntVar(&opts.floors, "floors", opts.floors, "building floor count (1-3)")
	cmd.Flags().StringVar(&opts.tier, "tier", "", "output tier: preview (default), print")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "per-slot worker pool size")
	cmd.Flags().BoolVar(&opts.disableQA, "disable-qa", false, "skip occupancy and render-sanity gates")
	cmd.Flags().StringVar(&opts.title, "title", "", "sheet title")
	cmd.Flags().StringVar(&opts.client, "client", "", "client name for the title block")
	cmd.Flags().StringVar(&opts.projectNumber, "project-number", "", "project number for the title block")
	cmd.Flags().Float64Var(&opts.north, "north", 0, "north direction in degrees (clockwise from up)")
	cmd.Flags().StringVar(&opts.catalogPath, "catalog", "", "catalog override file (TOML)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the panel fetch cache")
	cmd.Flags().StringVar(&opts.redisAddr, "redis", "", "shared Redis fetch cache address (host:port)")

	return cmd
}

// projectFile is the TOML project description accepted by compose.
type projectFile struct {
	Title         string  `toml:"title"`
	Client        string  `toml:"client"`
	ProjectNumber string  `toml:"project_number"`
	Template      string  `toml:"template"`
	Floors        int     `toml:"floors"`
	North         float64 `toml:"north"`

	Panels []projectPanel `toml:"panels"`
}

// projectPanel is one panel entry in a project file. Exactly one of File
// or URL should be set; File paths are resolved relative to the project
// file.
type projectPanel struct {
	Key  string `toml:"key"`
	File string `toml:"file"`
	URL  string `toml:"url"`
}

func runCompose(cmd *cobra.Command, input string, opts *composeOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	panels, project, err := loadPanels(input)
	if err != nil {
		return err
	}
	if len(panels) == 0 {
		return fmt.Errorf("no panels found in %s", input)
	}
	logger.Infof("Loaded %d panels from %s", len(panels), input)

	// Project file values apply where flags were not given explicitly.
	if project != nil {
		applyProjectDefaults(cmd, opts, project)
	}

	cat, err := catalog.Load(opts.catalogPath)
	if err != nil {
		return err
	}

	fetchCache, err := newFetchCache(ctx, opts.noCache, opts.redisAddr)
	if err != nil {
		return fmt.Errorf("fetch cache: %w", err)
	}
	defer fetchCache.Close()

	fetcher := fetch.NewClient(fetchCache, cache.NewDefaultKeyer(), logger)
	composer, err := compose.New(cat, compose.WithFetcher(fetcher))
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	spinner := newSpinner(ctx, "Composing sheet")
	spinner.Start()

	sheet, err := composer.Compose(ctx, compose.Options{
		Panels:        panels,
		Template:      opts.template,
		FloorCount:    opts.floors,
		Tier:          opts.tier,
		DisableQA:     opts.disableQA,
		Workers:       opts.workers,
		Title:         opts.title,
		Client:        opts.client,
		ProjectNumber: opts.projectNumber,
		NorthDeg:      opts.north,
		Logger:        logger,
	})
	if err != nil {
		spinner.StopWithError("Composition failed")
		return err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Composed %s sheet (%dx%d, %d panels)",
		sheet.TemplateUsed, sheet.Width, sheet.Height, sheet.PanelCount))
	prog.done("Composition finished")

	if err := os.WriteFile(opts.output, sheet.PNG, 0o644); err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}

	manifestPath := opts.manifestOut
	if manifestPath == "" {
		manifestPath = manifestPathFor(opts.output)
	}
	manifest := compose.BuildManifest(sheet, compose.Options{
		Panels:        panels,
		FloorCount:    opts.floors,
		Title:         opts.title,
		Client:        opts.client,
		ProjectNumber: opts.projectNumber,
	})
	if err := compose.WriteManifest(manifestPath, manifest); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	for _, key := range sheet.Substitutions {
		printWarning("Substituted placeholder for %q", key)
	}
	for _, w := range sheet.Warnings {
		printDetail("%s", w)
	}
	printFile(opts.output)
	printFile(manifestPath)
	return nil
}

// applyProjectDefaults copies project file values into opts for every flag
// the user did not set explicitly.
func applyProjectDefaults(cmd *cobra.Command, opts *composeOpts, p *projectFile) {
	flags := cmd.Flags()
	if !flags.Changed("title") && p.Title != "" {
		opts.title = p.Title
	}
	if !flags.Changed("client") && p.Client != "" {
		opts.client = p.Client
	}
	if !flags.Changed("project-number") && p.ProjectNumber != "" {
		opts.projectNumber = p.ProjectNumber
	}
	if !flags.Changed("template") && p.Template != "" {
		opts.template = p.Template
	}
	if !flags.Changed("floors") && p.Floors > 0 {
		opts.floors = p.Floors
	}
	if !flags.Changed("north") && p.North != 0 {
		opts.north = p.North
	}
}

// loadPanels reads panels from a directory of image files or from a TOML
// project file. Directory loads return a nil project.
func loadPanels(input string) ([]compose.Panel, *projectFile, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		panels, err := panelsFromDir(input)
		return panels, nil, err
	}
	return panelsFromProject(input)
}

// panelsFromDir loads every supported image file in dir as an inline
// panel. The file stem (name without extension) is the raw panel key.
func panelsFromDir(dir string) ([]compose.Panel, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var panels []compose.Panel
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !panelExts[ext] {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		panels = append(panels, compose.Panel{
			RawKey: strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Data:   data,
		})
	}
	sort.Slice(panels, func(i, j int) bool { return panels[i].RawKey < panels[j].RawKey })
	return panels, nil
}

// panelsFromProject loads a TOML project file. Panel file paths are
// resolved relative to the project file's directory.
func panelsFromProject(path string) ([]compose.Panel, *projectFile, error) {
	var project projectFile
	if _, err := toml.DecodeFile(path, &project); err != nil {
		return nil, nil, fmt.Errorf("parse project file: %w", err)
	}

	base := filepath.Dir(path)
	panels := make([]compose.Panel, 0, len(project.Panels))
	for _, p := range project.Panels {
		switch {
		case p.File != "":
			file := p.File
			if !filepath.IsAbs(file) {
				file = filepath.Join(base, file)
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return nil, nil, fmt.Errorf("panel %q: %w", p.Key, err)
			}
			panels = append(panels, compose.Panel{RawKey: p.Key, Data: data})
		case p.URL != "":
			panels = append(panels, compose.Panel{RawKey: p.Key, URL: p.URL})
		default:
			return nil, nil, fmt.Errorf("panel %q: neither file nor url set", p.Key)
		}
	}
	return panels, &project, nil
}

// manifestPathFor derives the manifest path from the sheet output path.
func manifestPathFor(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + "_manifest.json"
}
