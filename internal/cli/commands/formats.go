package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/speakeasy-api/schemafaker/internal/cli/config"
	"github.com/speakeasy-api/schemafaker/pkg/render"
	"github.com/speakeasy-api/schemafaker/random"
)

// sampleWidth is the display width of the sample column.
const sampleWidth = 48

// FormatInfo describes one registered format.
type FormatInfo struct {
	Name      string `json:"name"`
	Supported bool   `json:"supported"`
	Sample    any    `json:"sample,omitempty"`
}

// NewFormatsCommand creates the formats command.
func NewFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the string formats that can be generated",
		Long: `List every registered string format with a sample value.

Formats contributed by hook scripts are not listed. Use --output json or
yaml for machine-readable output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			infos := listFormats(cc)

			if cc.Config.Output == config.DefaultOutput {
				renderFormatsTable(cmd, infos)
				return nil
			}
			renderer, err := render.ByName(cc.Config.Output)
			if err != nil {
				return err
			}
			rows := make([]any, len(infos))
			for i, info := range infos {
				row := map[string]any{"name": info.Name, "supported": info.Supported}
				if info.Sample != nil {
					row["sample"] = info.Sample
				}
				rows[i] = row
			}
			text, err := renderer.Render(rows, nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func listFormats(cc *CommandContext) []FormatInfo {
	rnd := random.NewTime()
	if cc.Config.Seed != 0 {
		rnd = random.NewSeeded(cc.Config.Seed)
	}

	names := cc.Formats.Names()
	infos := make([]FormatInfo, 0, len(names))
	for _, name := range names {
		info := FormatInfo{Name: name}
		fn, _ := cc.Formats.Lookup(name)
		if fn != nil {
			info.Supported = true
			sample, err := fn(rnd, map[string]any{"type": "string", "format": name})
			if err != nil {
				cc.Logger.Warnf("format %s failed to produce a sample: %v", name, err)
			} else {
				info.Sample = sample
			}
		}
		infos = append(infos, info)
	}
	return infos
}

func renderFormatsTable(cmd *cobra.Command, infos []FormatInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Format", "Sample"})
	for _, info := range infos {
		sample := "(unsupported)"
		if info.Supported {
			sample = runewidth.Truncate(fmt.Sprint(info.Sample), sampleWidth, "…")
		}
		t.AppendRow(table.Row{info.Name, sample})
	}
	t.Render()
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "(%d formats)\n", len(infos))
}
