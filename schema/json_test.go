package schema

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestJSONFileName(t *testing.T) {
	cases := []struct {
		contract string
		counter  int
		want     string
	}{
		{"my-token", 1, "my-token_schema.json"},
		{"counter", 0, "counter_schema.json"},
		{"Weird[1]{x}_ok", 2, "Weird[1]{x}_ok_schema.json"},
		{"my token", 0, "contract-schema_0.json"},
		{"name/with/slash", 3, "contract-schema_3.json"},
		{"héllo", 5, "contract-schema_5.json"},
	}
	for _, tc := range cases {
		if got := JSONFileName(tc.contract, tc.counter); got != tc.want {
			t.Errorf("JSONFileName(%q, %d) = %q, want %q", tc.contract, tc.counter, got, tc.want)
		}
	}
}

func TestWriteJSONFiles(t *testing.T) {
	dir := t.TempDir()

	counter := fixture(V3).Contracts["counter"]
	ms := &ModuleSchema{Version: V3, Contracts: map[string]*Contract{
		// Sorts before "counter": space < 'o' at the second byte.
		"c ounter": {Receive: map[string]*Function{}},
		"counter":  counter,
	}}

	paths, err := WriteJSONFiles(dir, ms)
	if err != nil {
		t.Fatalf("WriteJSONFiles: %v", err)
	}
	want := []string{
		filepath.Join(dir, "contract-schema_0.json"),
		filepath.Join(dir, "counter_schema.json"),
	}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths: got %v, want %v", paths, want)
	}

	data, err := os.ReadFile(want[1])
	if err != nil {
		t.Fatal(err)
	}

	// The true contract name is always recorded in the document, and the
	// embedded type blobs are byte-identical to the compact serialization.
	var doc struct {
		ContractName string `json:"contractName"`
		Init         struct {
			Parameter string `json:"parameter"`
		} `json:"init"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.ContractName != "counter" {
		t.Errorf("contractName: got %q", doc.ContractName)
	}
	blob, err := jsonEncoder.DecodeString(doc.Init.Parameter)
	if err != nil {
		t.Fatalf("init parameter base64: %v", err)
	}
	if !bytes.Equal(blob, counter.Init.Parameter.Serialize()) {
		t.Error("init parameter blob differs from the type's compact serialization")
	}

	// The sanitized file still names the real contract.
	data, err = os.ReadFile(want[0])
	if err != nil {
		t.Fatal(err)
	}
	var sanitized struct {
		ContractName string `json:"contractName"`
	}
	if err := json.Unmarshal(data, &sanitized); err != nil {
		t.Fatal(err)
	}
	if sanitized.ContractName != "c ounter" {
		t.Errorf("sanitized contractName: got %q", sanitized.ContractName)
	}
}

// A parameterless function is a valid schema value under every version; the
// JSON documents must carry it through, including the bare-string V0 form.
func TestContractJSONRoundTrip_NoParameter(t *testing.T) {
	want := &Contract{
		Init: &Function{},
		Receive: map[string]*Function{
			"noop": {},
		},
	}

	for _, v := range []Version{V0, V3} {
		data, err := ContractJSON(v, "counter", want)
		if err != nil {
			t.Fatalf("%s: ContractJSON: %v", v, err)
		}
		name, got, err := ContractFromJSON(v, data)
		if err != nil {
			t.Fatalf("%s: ContractFromJSON: %v", v, err)
		}
		if name != "counter" {
			t.Errorf("%s: name: got %q", v, name)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: JSON round trip mismatch\ngot  %#v\nwant %#v", v, got, want)
		}
	}

	// The V0 document renders the parameterless init explicitly rather than
	// dropping the key.
	data, err := ContractJSON(V0, "counter", want)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if raw, ok := doc["init"]; !ok || string(raw) != "null" {
		t.Errorf("init: got %q, want null", raw)
	}
}

func TestContractJSONRoundTrip(t *testing.T) {
	for _, v := range []Version{V0, V3} {
		want := fixture(v).Contracts["counter"]
		data, err := ContractJSON(v, "counter", want)
		if err != nil {
			t.Fatalf("%s: ContractJSON: %v", v, err)
		}

		name, got, err := ContractFromJSON(v, data)
		if err != nil {
			t.Fatalf("%s: ContractFromJSON: %v", v, err)
		}
		if name != "counter" {
			t.Errorf("%s: name: got %q", v, name)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: JSON round trip mismatch\ngot  %#v\nwant %#v", v, got, want)
		}
	}
}
