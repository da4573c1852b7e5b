package main

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ivlev/carousel/internal/document"
	"github.com/ivlev/carousel/internal/system"
)

var inspectPNGDir string

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.pdf>",
	Short: "Print the pages of an exported PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectPNGDir, "png-dir", "", "render every page back to PNG here")
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	pages, err := document.Inspect(data)
	if err != nil {
		return err
	}
	fmt.Printf("[*] %s: %d pages\n", filepath.Base(args[0]), len(pages))
	for _, p := range pages {
		fmt.Printf("    %2d  %dx%d pt\n", p.Index+1, p.Width, p.Height)
	}

	if inspectPNGDir == "" {
		return nil
	}
	if err := system.EnsureDirs(inspectPNGDir); err != nil {
		return err
	}
	for _, p := range pages {
		img, err := document.RenderPage(data, p.Index, 72)
		if err != nil {
			return err
		}
		name := filepath.Join(inspectPNGDir, fmt.Sprintf("page-%02d.png", p.Index+1))
		f, err := os.Create(name)
		if err != nil {
			return err
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("[>] %s\n", name)
	}
	fmt.Printf("[+] Done! %d pages rendered to %s\n", len(pages), inspectPNGDir)
	return nil
}
