package template

import (
	"bytes"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/spf13/afero"
)

// Ext is the extension carried by template files.
const Ext = ".tmpl"

// Renderer renders Go text/templates with the build-file function map.
type Renderer struct {
	fs      afero.Fs
	funcMap template.FuncMap
}

// NewRenderer creates a Renderer that reads templates from fs. A nil fs reads
// from the OS filesystem.
func NewRenderer(fs afero.Fs) *Renderer {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &Renderer{
		fs:      fs,
		funcMap: FuncMap(),
	}
}

// Load parses a template file once so it can be executed for many variants.
func (r *Renderer) Load(tmplPath string) (*template.Template, error) {
	data, err := afero.ReadFile(r.fs, tmplPath)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", tmplPath, err)
	}

	return r.parse(filepath.Base(tmplPath), string(data))
}

// RenderString renders an inline template string with data.
func (r *Renderer) RenderString(text string, data any) (string, error) {
	t, err := r.parse("inline", text)
	if err != nil {
		return "", err
	}

	out, err := Execute(t, data)
	if err != nil {
		return "", err
	}

	return string(out), nil
}

// Execute runs a parsed template.
func Execute(t *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template %q: %w", t.Name(), err)
	}

	return buf.Bytes(), nil
}

func (r *Renderer) parse(name, text string) (*template.Template, error) {
	t, err := template.New(name).
		Funcs(r.funcMap).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing template %q: %w", name, err)
	}

	return t, nil
}
