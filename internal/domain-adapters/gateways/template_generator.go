package gateways

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/ochairo/releaser/internal/domain/interfaces"
	"github.com/ochairo/releaser/internal/domain/interfaces/gateways"
)

const templateSuffix = ".tmpl"

// TemplateGenerator renders every *.tmpl file of a directory into an
// output directory, dropping the suffix from the file name.
type TemplateGenerator struct {
	templateDir string
	outputDir   string
	logger      interfaces.Logger
}

// NewTemplateGenerator creates a generator.
func NewTemplateGenerator(templateDir, outputDir string, logger interfaces.Logger) *TemplateGenerator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &TemplateGenerator{templateDir: templateDir, outputDir: outputDir, logger: logger}
}

var templateFuncs = template.FuncMap{
	"join":  strings.Join,
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
}

// Generate renders all templates. It stops at the first failure.
func (g *TemplateGenerator) Generate(ctx context.Context, data gateways.AnnouncementData) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(g.templateDir, "*"+templateSuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no %s templates found in %s", templateSuffix, g.templateDir)
	}
	sort.Strings(matches)

	if err := os.MkdirAll(g.outputDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	written := make([]string, 0, len(matches))
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		out, err := g.render(path, data)
		if err != nil {
			return written, err
		}
		written = append(written, out)
		g.logger.Info("Rendered announcement", interfaces.F("file", out))
	}
	return written, nil
}

func (g *TemplateGenerator) render(path string, data gateways.AnnouncementData) (string, error) {
	name := filepath.Base(path)
	tmpl, err := template.New(name).Funcs(templateFuncs).Option("missingkey=error").ParseFiles(path)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	outPath := filepath.Join(g.outputDir, strings.TrimSuffix(name, templateSuffix))
	//nolint:gosec // G304: output path is built from the configured output dir
	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	if err := tmpl.Execute(f, data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", outPath, err)
	}
	return outPath, nil
}
