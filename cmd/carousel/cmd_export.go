package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/carousel/internal/engine"
	"github.com/ivlev/carousel/internal/layout"
	"github.com/ivlev/carousel/internal/model"
	"github.com/ivlev/carousel/internal/system"
)

var (
	exportFormat string
	exportOutput string
	exportTitle  string
	exportSVGDir string
)

var exportCmd = &cobra.Command{
	Use:   "export [project.json|project.yaml]",
	Short: "Export a project file to PDF",
	Long: `Reads a carousel project (JSON or YAML) and writes the exported document.
Without an argument the newest project in the configured project directory
is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "pdf", "export format")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output path (default: <output_dir>/<slug>_<timestamp>.pdf)")
	exportCmd.Flags().StringVar(&exportTitle, "title", "", "document title (default: first slide title)")
	exportCmd.Flags().StringVar(&exportSVGDir, "svg-dir", "", "also write each slide's vector artwork here")
}

// svgDump writes the artwork of every slide next to the export.
type svgDump struct {
	next engine.Layout
	dir  string
}

func (d svgDump) Render(in layout.Input) (*layout.Artwork, error) {
	art, err := d.next.Render(in)
	if err != nil {
		return nil, err
	}
	doc, err := art.SVG()
	if err != nil {
		return nil, err
	}
	name := filepath.Join(d.dir, fmt.Sprintf("slide-%02d.svg", in.Index+1))
	if err := os.WriteFile(name, doc, 0644); err != nil {
		return nil, err
	}
	return art, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := system.EnsureDirs(cfg.Render.ProjectDir, cfg.Render.OutputDir); err != nil {
		return err
	}

	inputPath := ""
	if len(args) == 1 {
		inputPath = args[0]
	} else {
		latest, err := system.FindLatestProject(cfg.Render.ProjectDir)
		if err != nil {
			return fmt.Errorf("%w; put a project into %s/", err, cfg.Render.ProjectDir)
		}
		inputPath = latest
		fmt.Printf("[*] Selected project: %s\n", inputPath)
	}

	project, err := model.ReadProject(inputPath)
	if err != nil {
		return err
	}

	var lay engine.Layout
	if exportSVGDir != "" {
		if err := system.EnsureDirs(exportSVGDir); err != nil {
			return err
		}
		lay = svgDump{next: newLayout(), dir: exportSVGDir}
	}

	exp, closeStore, err := buildExporter(cmd.Context(), lay, func(done, total int) {
		fmt.Printf("[>] Ready: %d/%d\n", done, total)
	})
	if err != nil {
		return err
	}
	defer closeStore()

	canvas := project.Canvas()
	fmt.Printf("[*] Slides: %d | Canvas: %dx%d | Workers: %d\n", len(project.Slides), canvas.Width, canvas.Height, cfg.Render.Workers)

	res, err := exp.Export(cmd.Context(), engine.Request{Project: project, Format: exportFormat, Title: exportTitle})
	if err != nil {
		return fmt.Errorf("export failed (%s): %w", engine.Classify(err), err)
	}
	for _, w := range res.Warnings {
		fmt.Printf("[!] %v\n", w)
	}

	out := exportOutput
	if out == "" {
		base := res.Filename[:len(res.Filename)-len(filepath.Ext(res.Filename))]
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		out = filepath.Join(cfg.Render.OutputDir, fmt.Sprintf("%s_%s%s", base, timestamp, filepath.Ext(res.Filename)))
	}
	if err := os.WriteFile(out, res.Body, 0644); err != nil {
		return err
	}

	fmt.Printf("[*] Fonts: %.2fs | Render: %.2fs | Assemble: %.2fs | Total: %.2fs\n",
		res.Stats.Fonts.Seconds(), res.Stats.Render.Seconds(), res.Stats.Assemble.Seconds(), res.Stats.Total.Seconds())
	fmt.Printf("[+] Done! %d pages written to %s\n", res.Pages, out)
	return nil
}
