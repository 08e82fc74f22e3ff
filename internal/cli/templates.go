package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/genarch/sheetpress/pkg/sheet/catalog"
)

// newTemplatesCmd creates the templates command for inspecting the layout
// catalog.
func newTemplatesCmd() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "templates [name]",
		Short: "List layout templates and their slots",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(catalogPath)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return printTemplate(cat, args[0])
			}
			printTemplateList(cat)
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "catalog override file (TOML)")
	return cmd
}

// printTemplateList prints every template with its slot count.
func printTemplateList(cat *catalog.Catalog) {
	names := make([]string, 0, len(cat.Templates))
	for name := range cat.Templates {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println(StyleTitle.Render("Templates"))
	for _, name := range names {
		tpl := cat.Templates[name]
		label := name
		if name == cat.DefaultTemplate {
			label += " (default)"
		}
		printKeyValue(label, fmt.Sprintf("%d slots", len(tpl.Slots)))
	}
}

// printTemplate prints one template's slots with their normalized rects
// and panel requirements.
func printTemplate(cat *catalog.Catalog, name string) error {
	resolved := cat.ResolveTemplate(name)
	tpl, ok := cat.Templates[resolved.Name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}

	fmt.Println(StyleTitle.Render(resolved.Name))
	keys := make([]string, 0, len(tpl.Slots))
	for key := range tpl.Slots {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		slot := tpl.Slots[key]
		spec := cat.Spec(key)
		mode := "contain"
		if spec.Fit == catalog.FitCover {
			mode = "cover"
		}
		requirement := "lenient"
		if spec.Strict {
			requirement = "strict"
		}
		printKeyValue(key, fmt.Sprintf("x=%.2f y=%.2f w=%.2f h=%.2f  %s, %s",
			slot.X, slot.Y, slot.Width, slot.Height, mode, requirement))
	}
	return nil
}
