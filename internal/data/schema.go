package data

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemaMu    sync.Mutex
	schemaCache = map[string]*jsonschema.Schema{}
)

// schemaFor compiles (once) the embedded schema with the given base name.
func schemaFor(name string) (*jsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if s, ok := schemaCache[name]; ok {
		return s, nil
	}
	raw, err := schemaFS.ReadFile("schemas/" + name + ".schema.json")
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	url := "mem://illarion/" + name + ".schema.json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	schemaCache[name] = s
	return s, nil
}

// decode validates a YAML document against the named schema and then
// unmarshals it into out. The document is normalised to JSON values first,
// so the validator sees the same types it would for a JSON file.
func decode(name string, doc []byte, out any) error {
	var tree any
	if err := yaml.Unmarshal(doc, &tree); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	js, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("normalise %s: %w", name, err)
	}
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("normalise %s: %w", name, err)
	}
	s, err := schemaFor(name)
	if err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("validate %s: %w", name, err)
	}
	if err := yaml.Unmarshal(doc, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
