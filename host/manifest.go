package host

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Export kinds. They tell a caller how to present a response.
const (
	KindBytes  = "bytes"
	KindString = "string"
)

// Manifest describes a guest module and the boundary exports it provides.
//
//	name: echo
//	module: echo.wasm
//	exports:
//	  - name: echo_string
//	    kind: string
type Manifest struct {
	Name        string       `yaml:"name" validate:"required"`
	Description string       `yaml:"description,omitempty"`
	Module      string       `yaml:"module" validate:"required"`
	Exports     []ExportSpec `yaml:"exports" validate:"required,min=1,unique=Name,dive"`

	dir string
}

// ExportSpec is one boundary export.
type ExportSpec struct {
	Name        string `yaml:"name" validate:"required"`
	Kind        string `yaml:"kind" validate:"required,oneof=bytes string"`
	Description string `yaml:"description,omitempty"`
}

// validate is a package-level singleton; building a validator is expensive.
var validate = validator.New()

// LoadManifest parses and validates a YAML manifest.
func LoadManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestError{Err: fmt.Errorf("failed to parse manifest: %w", err)}
	}

	if err := validate.Struct(&m); err != nil {
		merr := &ManifestError{Err: err}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				merr.Fields = append(merr.Fields, FieldError{
					Field:   fe.Namespace(),
					Message: describeTag(fe),
				})
			}
		}
		return nil, merr
	}

	return &m, nil
}

// LoadManifestFile reads a manifest from path. Relative module paths resolve
// against the manifest's directory.
func LoadManifestFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := LoadManifest(data)
	if err != nil {
		return nil, err
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// ModulePath returns the path of the module file.
func (m *Manifest) ModulePath() string {
	if filepath.IsAbs(m.Module) || m.dir == "" {
		return m.Module
	}
	return filepath.Join(m.dir, m.Module)
}

// Export looks up an export by name.
func (m *Manifest) Export(name string) (ExportSpec, bool) {
	for _, e := range m.Exports {
		if e.Name == name {
			return e, true
		}
	}
	return ExportSpec{}, false
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "unique":
		return "must not contain duplicate names"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %q constraint", fe.Tag())
	}
}
