// Package schema loads declarative importer definitions from YAML and keeps
// a registry of named definitions.
//
// A definition names the fields of a source file, which of them are
// required and the rules that validate them:
//
//	name: contacts
//	label: Contacts
//	reader:
//	  format: csv
//	  delimiter: ";"
//	fields:
//	  - name: cpf
//	    required: true
//	    rules: [cpf]
//	  - name: email
//	    rules: [trim, "tag:email"]
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/encoding"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/dataimport/internal/core"
	"github.com/JonMunkholm/dataimport/internal/reader"
	"github.com/JonMunkholm/dataimport/internal/rules"
)

// ErrInvalidDefinition wraps every definition loading error.
var ErrInvalidDefinition = errors.New("invalid definition")

// Definition describes one importer.
type Definition struct {
	Name   string     `yaml:"name" validate:"required"`
	Label  string     `yaml:"label"`
	Group  string     `yaml:"group"`
	Reader ReaderSpec `yaml:"reader"`
	Fields []FieldDef `yaml:"fields" validate:"required,min=1,dive"`
}

// ReaderSpec selects and configures the reader.
type ReaderSpec struct {
	// Format forces a reader by extension name (csv, xls, xlsx). Empty
	// selects by the source file name.
	Format        string `yaml:"format"`
	Delimiter     string `yaml:"delimiter"`
	Sheet         string `yaml:"sheet"`
	CoerceNumbers bool   `yaml:"coerce_numbers"`
	Encoding      string `yaml:"encoding"`
}

// FieldDef declares one field.
type FieldDef struct {
	Name     string   `yaml:"name" validate:"required"`
	Required bool     `yaml:"required"`
	Rules    []string `yaml:"rules"`
}

var structValidator = validator.New()

// Parse decodes and checks a YAML definition.
func Parse(data []byte) (Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return Definition{}, fmt.Errorf("%w: empty document", ErrInvalidDefinition)
		}
		return Definition{}, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	if err := def.Check(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// LoadFile parses the definition stored at path.
func LoadFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read definition: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return Definition{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return def, nil
}

// LoadDir parses every *.yaml and *.yml file in dir.
func LoadDir(dir string) ([]Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read definitions dir: %w", err)
	}

	var defs []Definition
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		def, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Check validates the definition without building it.
func (d Definition) Check() error {
	if err := structValidator.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	_, err := d.Config()
	return err
}

// FieldNames returns the normalized field names in declaration order.
func (d Definition) FieldNames() []string {
	out := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		out[i] = reader.NormalizeHeader(f.Name)
	}
	return out
}

// Config builds the importer configuration. Field names are normalized
// the same way headers are, so "Data de Nascimento" matches the column
// header "data_de_nascimento". Logger, Saver and Observer are left for the
// caller to set.
func (d Definition) Config() (core.Config, error) {
	cfg := core.Config{
		Name:       d.Name,
		Fields:     d.FieldNames(),
		Validators: make(map[string]core.Validator),
	}

	for i, f := range d.Fields {
		name := cfg.Fields[i]
		if f.Required {
			cfg.RequiredFields = append(cfg.RequiredFields, name)
		}
		if len(f.Rules) == 0 {
			continue
		}
		chain := make([]core.Validator, 0, len(f.Rules))
		for _, spec := range f.Rules {
			v, err := ParseRule(spec)
			if err != nil {
				return core.Config{}, fmt.Errorf("%w: field %s: %v", ErrInvalidDefinition, f.Name, err)
			}
			chain = append(chain, v)
		}
		if len(chain) == 1 {
			cfg.Validators[name] = chain[0]
		} else {
			cfg.Validators[name] = rules.Chain(chain...)
		}
	}

	opts, factory, err := d.Reader.options()
	if err != nil {
		return core.Config{}, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	cfg.ReaderOptions = opts
	cfg.Reader = factory

	if err := cfg.Validate(); err != nil {
		return core.Config{}, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	return cfg, nil
}

func (r ReaderSpec) options() (reader.Options, reader.Factory, error) {
	var opts reader.Options

	if r.Delimiter != "" {
		d, size := utf8.DecodeRuneInString(r.Delimiter)
		if size != len(r.Delimiter) || d == utf8.RuneError {
			return opts, nil, fmt.Errorf("delimiter must be a single character, got %q", r.Delimiter)
		}
		opts.Delimiter = d
	}
	opts.Sheet = r.Sheet
	opts.CoerceNumbers = r.CoerceNumbers

	if r.Encoding != "" {
		enc, err := reader.CodecByName(r.Encoding)
		if err != nil {
			return opts, nil, err
		}
		opts.Codecs = []encoding.Encoding{enc}
	}

	var factory reader.Factory
	if r.Format != "" {
		f, ok := reader.Lookup(r.Format)
		if !ok {
			return opts, nil, fmt.Errorf("unknown reader format %q", r.Format)
		}
		factory = f
	}
	return opts, factory, nil
}
