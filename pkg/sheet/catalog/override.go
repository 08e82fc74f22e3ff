package catalog

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/genarch/sheetpress/pkg/errors"
)

// overrideFile is the TOML schema for catalog overrides. All fields are
// optional; anything absent keeps the built-in value.
type overrideFile struct {
	DefaultTemplate string                      `toml:"default_template"`
	Panels          map[string]panelOverride    `toml:"panels"`
	Templates       map[string]templateOverride `toml:"templates"`
	Aliases         map[string]string           `toml:"aliases"`
}

type panelOverride struct {
	Fit          *string  `toml:"fit"`
	Strict       *bool    `toml:"strict"`
	Rotatable    *bool    `toml:"rotatable"`
	TechnicalPad *int     `toml:"technical_pad"`
	AlignX       *float64 `toml:"align_x"`
	AlignY       *float64 `toml:"align_y"`
	Label        *string  `toml:"label"`
}

type templateOverride struct {
	Slots map[string]SlotRect `toml:"slots"`
}

// Load returns the built-in catalog merged with a TOML override file and
// re-validated. An empty path returns the default catalog unchanged.
func Load(path string) (*Catalog, error) {
	cat := Default()
	if path == "" {
		if err := cat.Validate(); err != nil {
			return nil, err
		}
		return cat, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "read catalog override %s", path)
	}

	var ov overrideFile
	if err := toml.Unmarshal(data, &ov); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "parse catalog override %s", path)
	}

	merged := cat.clone()
	if ov.DefaultTemplate != "" {
		merged.DefaultTemplate = ov.DefaultTemplate
	}

	for key, p := range ov.Panels {
		spec := merged.Spec(key)
		if p.Fit != nil {
			switch FitMode(*p.Fit) {
			case FitCover, FitContain:
				spec.Fit = FitMode(*p.Fit)
			default:
				return nil, errors.Fatal(errors.ErrCodeInvalidCatalog,
					"panel %q has unknown fit mode %q", key, *p.Fit)
			}
		}
		if p.Strict != nil {
			spec.Strict = *p.Strict
		}
		if p.Rotatable != nil {
			spec.Rotatable = *p.Rotatable
		}
		if p.TechnicalPad != nil {
			spec.TechnicalPad = *p.TechnicalPad
		}
		if p.AlignX != nil {
			spec.AlignX = *p.AlignX
		}
		if p.AlignY != nil {
			spec.AlignY = *p.AlignY
		}
		if p.Label != nil {
			spec.Label = *p.Label
		}
		merged.Panels[key] = spec
	}

	for name, t := range ov.Templates {
		slots := make(map[string]SlotRect, len(t.Slots))
		if existing, ok := merged.Templates[name]; ok {
			for k, r := range existing.Slots {
				slots[k] = r
			}
		}
		for k, r := range t.Slots {
			slots[k] = r
		}
		merged.Templates[name] = Template{Name: name, Slots: slots}
	}

	for alias, target := range ov.Aliases {
		merged.KeyAliases[alias] = target
	}

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}
