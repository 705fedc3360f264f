// Package forms holds the catalogue of yard forms: the JSON schema of each
// kind, the default (empty) field values and payload validation.
package forms

import (
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/iudanet/yardsync/internal/models"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// FieldType is the JSON type of a form field
type FieldType string

const (
	FieldText   FieldType = "string"
	FieldNumber FieldType = "number"
	FieldList   FieldType = "array"
)

// Field describes one input of a form
type Field struct {
	Name     string
	Type     FieldType
	Required bool
}

// Form is a compiled form definition
type Form struct {
	schema *gojsonschema.Schema
	Kind   models.FormKind
	Fields []Field
}

// Validator checks a payload before it is submitted
type Validator interface {
	Validate(kind models.FormKind, fields map[string]any) error
}

// Catalogue is the set of known forms
type Catalogue struct {
	forms map[models.FormKind]*Form
}

// Load compiles the embedded schemas of every known kind
func Load() (*Catalogue, error) {
	c := &Catalogue{forms: make(map[models.FormKind]*Form, len(models.AllKinds))}

	for _, kind := range models.AllKinds {
		raw, err := schemaFS.ReadFile("schemas/" + string(kind) + ".json")
		if err != nil {
			return nil, fmt.Errorf("failed to read %s schema: %w", kind, err)
		}

		form, err := compile(kind, raw)
		if err != nil {
			return nil, err
		}
		c.forms[kind] = form
	}

	return c, nil
}

// MustLoad is Load for package-level initialisation; embedded schemas are fixed at build time
func MustLoad() *Catalogue {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

func compile(kind models.FormKind, raw []byte) (*Form, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s schema: %w", kind, err)
	}

	required := make(map[string]bool)
	for _, r := range gjson.GetBytes(raw, "required").Array() {
		required[r.String()] = true
	}

	var fields []Field
	gjson.GetBytes(raw, "properties").ForEach(func(name, prop gjson.Result) bool {
		fields = append(fields, Field{
			Name:     name.String(),
			Type:     FieldType(prop.Get("type").String()),
			Required: required[name.String()],
		})
		return true
	})

	return &Form{Kind: kind, Fields: fields, schema: schema}, nil
}

// Get returns the form of the given kind
func (c *Catalogue) Get(kind models.FormKind) (*Form, error) {
	f, ok := c.forms[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return f, nil
}

// Defaults returns a fresh map with the empty value of every field of kind
func (c *Catalogue) Defaults(kind models.FormKind) map[string]any {
	f, ok := c.forms[kind]
	if !ok {
		return map[string]any{}
	}
	return f.Defaults()
}

// Validate checks fields against the schema of kind
func (c *Catalogue) Validate(kind models.FormKind, fields map[string]any) error {
	f, err := c.Get(kind)
	if err != nil {
		return err
	}
	return f.Validate(fields)
}

// Defaults returns the empty value of every field
func (f *Form) Defaults() map[string]any {
	out := make(map[string]any, len(f.Fields))
	for _, field := range f.Fields {
		switch field.Type {
		case FieldNumber:
			out[field.Name] = 0
		case FieldList:
			out[field.Name] = []any{}
		default:
			out[field.Name] = ""
		}
	}
	return out
}

// Field returns the definition of the named field
func (f *Form) Field(name string) (Field, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// Validate checks fields against the form schema.
// All violations are collected into a *ValidationError.
func (f *Form) Validate(fields map[string]any) error {
	if fields == nil {
		fields = map[string]any{}
	}

	result, err := f.schema.Validate(gojsonschema.NewGoLoader(fields))
	if err != nil {
		return fmt.Errorf("failed to validate %s form: %w", f.Kind, err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	sort.Strings(problems)

	return &ValidationError{Kind: f.Kind, Problems: problems}
}

// Parse converts a textual value entered on the command line into the field's type
func (f *Form) Parse(name, value string) (any, error) {
	field, ok := f.Field(name)
	if !ok {
		return nil, fmt.Errorf("unknown field %q for %s form", name, f.Kind)
	}

	switch field.Type {
	case FieldNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("field %q must be a number: %w", name, err)
		}
		return n, nil
	case FieldList:
		if value == "" {
			return []any{}, nil
		}
		parts := strings.Split(value, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out, nil
	default:
		return value, nil
	}
}
