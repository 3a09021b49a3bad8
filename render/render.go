// Package render materializes a project template tree into an output directory.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/karrick/godirwalk"
)

// RawSuffix marks files copied without template expansion
const RawSuffix = ".raw"

// TemplateRenderer renders path segments and file bodies with text/template
type TemplateRenderer struct {
	funcs template.FuncMap
}

// NewTemplateRenderer returns a renderer. Missing keys are errors.
func NewTemplateRenderer(funcs template.FuncMap) *TemplateRenderer {
	return &TemplateRenderer{funcs: funcs}
}

// Render walks templateDir and writes the rendered tree into outputDir.
// Every path segment and every file body is a template over data; files
// ending in RawSuffix are copied verbatim with the suffix stripped. A path
// segment rendering to an empty string drops that entry.
func (r *TemplateRenderer) Render(ctx context.Context, templateDir, outputDir string, data map[string]any) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	return godirwalk.Walk(templateDir, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rel, err := filepath.Rel(templateDir, osPathname)
			if err != nil {
				return err
			}
			if rel == "." {
				return nil
			}

			target, keep, err := r.renderPath(rel, data)
			if err != nil {
				return err
			}
			if !keep {
				if de.IsDir() {
					return godirwalk.SkipThis
				}
				return nil
			}

			dest := filepath.Join(outputDir, target)
			if de.IsDir() {
				return os.MkdirAll(dest, 0o755)
			}

			return r.renderFile(osPathname, dest, data)
		},
	})
}

func (r *TemplateRenderer) renderPath(rel string, data map[string]any) (string, bool, error) {
	segments := strings.Split(filepath.ToSlash(rel), "/")
	for i, segment := range segments {
		rendered, err := r.execute(rel, segment, data)
		if err != nil {
			return "", false, err
		}
		if rendered == "" {
			return "", false, nil
		}
		if strings.ContainsAny(rendered, `/\`) || rendered == "." || rendered == ".." {
			return "", false, fmt.Errorf("path segment %q of %s renders to invalid name %q", segment, rel, rendered)
		}
		segments[i] = rendered
	}

	return filepath.Join(segments...), true, nil
}

func (r *TemplateRenderer) renderFile(src, dest string, data map[string]any) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	if strings.HasSuffix(dest, RawSuffix) {
		dest = strings.TrimSuffix(dest, RawSuffix)
	} else {
		rendered, err := r.execute(src, string(content), data)
		if err != nil {
			return err
		}
		content = []byte(rendered)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	return os.WriteFile(dest, content, info.Mode().Perm())
}

func (r *TemplateRenderer) execute(name, text string, data map[string]any) (string, error) {
	tmpl, err := template.New(name).
		Funcs(r.funcs).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return "", fmt.Errorf("cannot parse template %s: %w", name, err)
	}

	var output bytes.Buffer
	if err := tmpl.Execute(&output, data); err != nil {
		return "", fmt.Errorf("cannot render template %s: %w", name, err)
	}

	return output.String(), nil
}
