package schema

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// jsonEncoder encodes type descriptor leaves. Standard alphabet, no padding;
// padding is useless inside JSON strings.
var jsonEncoder = base64.RawStdEncoding

// JSONFileName returns the file name a contract's JSON schema is written
// under. Contract names are used directly when they only contain filesystem
// safe characters; otherwise the zero-based position among the module's
// contracts names the file.
func JSONFileName(contractName string, counter int) string {
	for _, c := range contractName {
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') || strings.ContainsRune("-_[]{}", c) {
			continue
		}
		return fmt.Sprintf("contract-schema_%d.json", counter)
	}
	return contractName + "_schema.json"
}

// WriteJSONFiles writes one JSON document per contract into dir, creating
// the directory if needed, and returns the written paths in contract order.
func WriteJSONFiles(dir string, ms *ModuleSchema) ([]string, error) {
	names := make([]string, 0, len(ms.Contracts))
	for name := range ms.Contracts {
		names = append(names, name)
	}
	sort.Strings(names)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating schema JSON directory: %w", err)
	}

	var paths []string
	for counter, name := range names {
		doc := contractDoc(ms.Version, ms.Contracts[name])
		// The true contract name always goes in the document, even when the
		// file name had to be sanitized away from it.
		doc["contractName"] = name

		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("contract %q: %w", name, err)
		}
		path := filepath.Join(dir, JSONFileName(name, counter))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("writing schema for %q: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ContractJSON renders a single contract schema as a JSON document.
func ContractJSON(v Version, name string, c *Contract) ([]byte, error) {
	doc := contractDoc(v, c)
	doc["contractName"] = name
	return json.MarshalIndent(doc, "", "  ")
}

func contractDoc(v Version, c *Contract) map[string]any {
	caps := v.caps()
	doc := map[string]any{}
	if c.Init != nil {
		doc["init"] = functionDoc(caps, c.Init)
	}
	if caps.hasState && c.State != nil {
		doc["state"] = typeToJSON(c.State)
	}
	if caps.hasEvent && c.Event != nil {
		doc["event"] = typeToJSON(c.Event)
	}
	if len(c.Receive) > 0 {
		entrypoints := map[string]any{}
		for name, fn := range c.Receive {
			entrypoints[name] = functionDoc(caps, fn)
		}
		doc["entrypoints"] = entrypoints
	}
	return doc
}

// functionDoc renders a function schema. V0 functions carry only a
// parameter, rendered as a bare base64 string (null when the function is
// parameterless); later versions render an object keyed by what is present.
func functionDoc(caps capabilities, f *Function) any {
	if !caps.hasReturnValue {
		if f.Parameter == nil {
			return nil
		}
		return typeToJSON(f.Parameter)
	}
	obj := map[string]any{}
	if f.Parameter != nil {
		obj["parameter"] = typeToJSON(f.Parameter)
	}
	if f.ReturnValue != nil {
		obj["returnValue"] = typeToJSON(f.ReturnValue)
	}
	if caps.hasError && f.Error != nil {
		obj["error"] = typeToJSON(f.Error)
	}
	return obj
}

// typeToJSON encodes a type descriptor as the base64 form of its compact
// binary serialization. The JSON documents deliberately expose opaque blobs
// rather than a structural tree, keeping the document shape stable as the
// type system evolves.
func typeToJSON(t *Type) string {
	return jsonEncoder.EncodeToString(t.Serialize())
}

func typeFromJSON(s string) (*Type, error) {
	data, err := jsonEncoder.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding base64 type: %w", err)
	}
	return DeserializeType(data)
}

// ContractFromJSON decodes a per-contract JSON document produced by
// WriteJSONFiles back into a contract schema. The schema version must be
// supplied; the documents do not record it.
func ContractFromJSON(v Version, data []byte) (string, *Contract, error) {
	var doc struct {
		ContractName string                     `json:"contractName"`
		Init         json.RawMessage            `json:"init"`
		State        string                     `json:"state"`
		Event        string                     `json:"event"`
		Entrypoints  map[string]json.RawMessage `json:"entrypoints"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", nil, err
	}

	caps := v.caps()
	c := &Contract{Receive: map[string]*Function{}}
	var err error

	if len(doc.Init) > 0 {
		if c.Init, err = functionFromJSON(caps, doc.Init); err != nil {
			return "", nil, fmt.Errorf("init: %w", err)
		}
	}
	if doc.State != "" {
		if c.State, err = typeFromJSON(doc.State); err != nil {
			return "", nil, fmt.Errorf("state: %w", err)
		}
	}
	if doc.Event != "" {
		if c.Event, err = typeFromJSON(doc.Event); err != nil {
			return "", nil, fmt.Errorf("event: %w", err)
		}
	}
	for name, raw := range doc.Entrypoints {
		fn, err := functionFromJSON(caps, raw)
		if err != nil {
			return "", nil, fmt.Errorf("entrypoint %q: %w", name, err)
		}
		c.Receive[name] = fn
	}
	return doc.ContractName, c, nil
}

func functionFromJSON(caps capabilities, raw json.RawMessage) (*Function, error) {
	if !caps.hasReturnValue {
		var s *string
		if err := json.Unmarshal(raw, &s); err != nil {
			// An empty object is also accepted as a parameterless function.
			var obj map[string]json.RawMessage
			if objErr := json.Unmarshal(raw, &obj); objErr == nil && len(obj) == 0 {
				return &Function{}, nil
			}
			return nil, err
		}
		if s == nil {
			return &Function{}, nil
		}
		param, err := typeFromJSON(*s)
		if err != nil {
			return nil, err
		}
		return &Function{Parameter: param}, nil
	}

	var obj struct {
		Parameter   string `json:"parameter"`
		ReturnValue string `json:"returnValue"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	fn := &Function{}
	var err error
	if obj.Parameter != "" {
		if fn.Parameter, err = typeFromJSON(obj.Parameter); err != nil {
			return nil, fmt.Errorf("parameter: %w", err)
		}
	}
	if obj.ReturnValue != "" {
		if fn.ReturnValue, err = typeFromJSON(obj.ReturnValue); err != nil {
			return nil, fmt.Errorf("return value: %w", err)
		}
	}
	if caps.hasError && obj.Error != "" {
		if fn.Error, err = typeFromJSON(obj.Error); err != nil {
			return nil, fmt.Errorf("error: %w", err)
		}
	}
	return fn, nil
}
