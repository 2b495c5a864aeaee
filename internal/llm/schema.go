package llm

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"coursegen/internal/course"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[course.ContentType]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() {
	compiled := make(map[course.ContentType]*jsonschema.Schema, len(course.ContentTypes()))
	for _, ct := range course.ContentTypes() {
		name := "schemas/" + string(ct) + ".json"
		data, err := schemaFS.ReadFile(name)
		if err != nil {
			schemasErr = err
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
			schemasErr = fmt.Errorf("schema %s: %w", ct, err)
			return
		}
		schema, err := compiler.Compile(name)
		if err != nil {
			schemasErr = fmt.Errorf("schema %s: %w", ct, err)
			return
		}
		compiled[ct] = schema
	}
	schemas = compiled
}

// CheckShape validates raw against the embedded JSON Schema of ct.
func CheckShape(ct course.ContentType, raw json.RawMessage) error {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return schemasErr
	}
	schema, ok := schemas[ct]
	if !ok {
		return &UnsupportedContentTypeError{ContentType: string(ct)}
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &MalformedOutputError{Raw: string(raw), Err: err}
	}
	if err := schema.Validate(doc); err != nil {
		return &MalformedOutputError{Raw: string(raw), Err: err}
	}
	return nil
}

// decodeFragment runs recovery, the shape check and the typed decode over one
// completion.
func decodeFragment(ct course.ContentType, text string) (course.Fragment, error) {
	raw, err := RecoverJSON(text)
	if err != nil {
		return nil, err
	}
	if err := CheckShape(ct, raw); err != nil {
		return nil, withRaw(err, text)
	}
	frag, err := course.DecodeFragment(ct, raw)
	if err != nil {
		return nil, &MalformedOutputError{Raw: text, Err: err}
	}
	if err := frag.Validate(); err != nil {
		return nil, &MalformedOutputError{Raw: text, Err: err}
	}
	return frag, nil
}

func withRaw(err error, text string) error {
	if malformed, ok := err.(*MalformedOutputError); ok {
		malformed.Raw = text
	}
	return err
}
