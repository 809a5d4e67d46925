package build

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/concordium/concordium-build/artifact"
	cerrors "github.com/concordium/concordium-build/errors"
	bin "github.com/concordium/concordium-build/internal/binary"
	"github.com/concordium/concordium-build/schema"
	"github.com/concordium/concordium-build/wasm"
)

// ---- binary module assembly -------------------------------------------------

func section(id byte, body []byte) []byte {
	w := bin.NewWriter()
	w.Byte(id)
	w.WriteU32(uint32(len(body)))
	w.WriteBytes(body)
	return w.Bytes()
}

func assemble(sections ...[]byte) []byte {
	w := bin.NewWriter()
	w.WriteU32LE(wasm.Magic)
	w.WriteU32LE(wasm.Version)
	for _, s := range sections {
		w.WriteBytes(s)
	}
	return w.Bytes()
}

// emptyBody is a function body with no locals that returns immediately.
func emptyBody() []byte {
	return []byte{0x02, 0x00, 0x0B} // size, locals, end
}

// plainContractModule is a well-formed module exporting a counter contract:
// one void signature, three functions, and the matching exports.
func plainContractModule() []byte {
	types := bin.NewWriter()
	types.WriteU32(1)
	types.Byte(wasm.FuncTypeByte)
	types.WriteU32(0) // no params
	types.WriteU32(0) // no results

	funcs := bin.NewWriter()
	funcs.WriteU32(3)
	for i := 0; i < 3; i++ {
		funcs.WriteU32(0)
	}

	exports := bin.NewWriter()
	exports.WriteU32(3)
	for i, name := range []string{"init_counter", "counter.increment", "counter.decrement"} {
		exports.WriteName(name)
		exports.Byte(wasm.KindFunc)
		exports.WriteU32(uint32(i))
	}

	code := bin.NewWriter()
	code.WriteU32(3)
	for i := 0; i < 3; i++ {
		code.WriteBytes(emptyBody())
	}

	return assemble(
		section(wasm.SectionType, types.Bytes()),
		section(wasm.SectionFunction, funcs.Bytes()),
		section(wasm.SectionExport, exports.Bytes()),
		section(wasm.SectionCode, code.Bytes()),
		// A user custom section; the pipeline must strip it.
		section(wasm.SectionCustom, append([]byte{4}, []byte("user")...)),
	)
}

func counterSchemaContract() *schema.Contract {
	return &schema.Contract{
		Init: &schema.Function{Parameter: &schema.Type{Tag: schema.TagUnit}},
		Receive: map[string]*schema.Function{
			"increment": {Parameter: &schema.Type{Tag: schema.TagU64}, ReturnValue: &schema.Type{Tag: schema.TagU64}},
			"decrement": {Parameter: &schema.Type{Tag: schema.TagU64}, ReturnValue: &schema.Type{Tag: schema.TagU64}},
		},
	}
}

// schemaBuildModule is an executable module in the shape the schema feature
// produces: the contract schema bytes sit in a data segment, and the
// generation entry point returns (offset << 32) | length. It imports one host
// function so instantiation exercises the host stubs.
func schemaBuildModule(t *testing.T) []byte {
	t.Helper()
	payload := counterSchemaContract().Serialize(schema.V3)
	const offset = 16

	types := bin.NewWriter()
	types.WriteU32(2)
	// type 0: () -> i64
	types.Byte(wasm.FuncTypeByte)
	types.WriteU32(0)
	types.WriteU32(1)
	types.Byte(byte(wasm.ValI64))
	// type 1: (i32) -> i32
	types.Byte(wasm.FuncTypeByte)
	types.WriteU32(1)
	types.Byte(byte(wasm.ValI32))
	types.WriteU32(1)
	types.Byte(byte(wasm.ValI32))

	imports := bin.NewWriter()
	imports.WriteU32(1)
	imports.WriteName("concordium")
	imports.WriteName("get_parameter_size")
	imports.Byte(wasm.KindFunc)
	imports.WriteU32(1)

	funcs := bin.NewWriter()
	funcs.WriteU32(1)
	funcs.WriteU32(0)

	memory := bin.NewWriter()
	memory.WriteU32(1)
	memory.Byte(0x00) // min only
	memory.WriteU32(1)

	exports := bin.NewWriter()
	exports.WriteU32(2)
	exports.WriteName("concordium_schema_function_init_counter")
	exports.Byte(wasm.KindFunc)
	exports.WriteU32(1) // function index 0 is the import
	exports.WriteName("memory")
	exports.Byte(wasm.KindMemory)
	exports.WriteU32(0)

	body := bin.NewWriter()
	body.Byte(0x00) // no locals
	body.Byte(0x42) // i64.const
	body.WriteS64(int64(offset)<<32 | int64(len(payload)))
	body.Byte(0x0B) // end
	code := bin.NewWriter()
	code.WriteU32(1)
	code.WriteU32(uint32(body.Len()))
	code.WriteBytes(body.Bytes())

	data := bin.NewWriter()
	data.WriteU32(1)
	data.Byte(0x00) // active segment, memory 0
	data.Byte(0x41) // i32.const
	data.WriteS64(offset)
	data.Byte(0x0B)
	data.WriteU32(uint32(len(payload)))
	data.WriteBytes(payload)

	return assemble(
		section(wasm.SectionType, types.Bytes()),
		section(wasm.SectionImport, imports.Bytes()),
		section(wasm.SectionFunction, funcs.Bytes()),
		section(wasm.SectionMemory, memory.Bytes()),
		section(wasm.SectionExport, exports.Bytes()),
		section(wasm.SectionCode, code.Bytes()),
		section(wasm.SectionData, data.Bytes()),
	)
}

// ---- fake toolchain ---------------------------------------------------------

// fakeToolchain stands in for cargo: Compile drops a prebuilt binary at the
// location the pipeline expects, choosing the schema binary for schema
// builds.
type fakeToolchain struct {
	targetDir    string
	plainModule  []byte
	schemaModule []byte
	compiles     []CompileRequest
}

func (f *fakeToolchain) Metadata(ctx context.Context, dir string) (*Metadata, error) {
	return &Metadata{PackageName: "my-counter", TargetDirectory: f.targetDir}, nil
}

func (f *fakeToolchain) Compile(ctx context.Context, req CompileRequest) error {
	f.compiles = append(f.compiles, req)
	out := f.plainModule
	if len(req.Features) > 0 {
		out = f.schemaModule
	}
	path := artifactPath(req.TargetDir, "my-counter")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

// ---- tests --------------------------------------------------------------

func TestBuildContract_Plain(t *testing.T) {
	tc := &fakeToolchain{targetDir: t.TempDir(), plainModule: plainContractModule()}
	outPath := filepath.Join(t.TempDir(), "nested", "counter.wasm.v1")

	res, err := BuildContract(context.Background(), Options{
		Version:   artifact.V1,
		Out:       outPath,
		Toolchain: tc,
	})
	if err != nil {
		t.Fatalf("BuildContract: %v", err)
	}
	if res.Schema != nil {
		t.Error("unexpected schema on a plain build")
	}
	if res.OutputPath != outPath {
		t.Errorf("output path: got %q", res.OutputPath)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if res.TotalSize != len(data) {
		t.Errorf("TotalSize: got %d, want %d", res.TotalSize, len(data))
	}
	if !bytes.Equal(data[:4], []byte{0, 0, 0, 1}) {
		t.Errorf("version tag: got % x", data[:4])
	}

	_, payload, err := artifact.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	moduleBytes, custom, err := artifact.SplitPayload(payload)
	if err != nil {
		t.Fatalf("SplitPayload: %v", err)
	}
	if custom != nil {
		t.Errorf("unexpected custom section %q", custom.Name)
	}

	// The user custom section must have been stripped.
	sk, err := wasm.ParseSkeleton(moduleBytes)
	if err != nil {
		t.Fatalf("ParseSkeleton: %v", err)
	}
	if got := sk.CustomSections(); len(got) != 0 {
		t.Errorf("custom sections survived stripping: %+v", got)
	}
	if len(tc.compiles) != 1 || len(tc.compiles[0].Features) != 0 {
		t.Errorf("compiles: %+v", tc.compiles)
	}
}

func TestBuildContract_DefaultOutputPath(t *testing.T) {
	tc := &fakeToolchain{targetDir: t.TempDir(), plainModule: plainContractModule()}

	res, err := BuildContract(context.Background(), Options{Version: artifact.V0, Toolchain: tc})
	if err != nil {
		t.Fatalf("BuildContract: %v", err)
	}
	want := artifactPath(filepath.Join(tc.targetDir, "concordium"), "my-counter") + ".v0"
	if res.OutputPath != want {
		t.Errorf("output path: got %q, want %q", res.OutputPath, want)
	}
}

func TestBuildContract_SchemaEmbed(t *testing.T) {
	tc := &fakeToolchain{
		targetDir:    t.TempDir(),
		plainModule:  plainContractModule(),
		schemaModule: schemaBuildModule(t),
	}
	outPath := filepath.Join(t.TempDir(), "counter.wasm.v1")

	res, err := BuildContract(context.Background(), Options{
		Version:   artifact.V1,
		Schema:    SchemaBuildAndEmbed,
		Out:       outPath,
		Toolchain: tc,
	})
	if err != nil {
		t.Fatalf("BuildContract: %v", err)
	}

	// Schema build first with the feature, then the production compile.
	if len(tc.compiles) != 2 {
		t.Fatalf("compiles: got %d, want 2", len(tc.compiles))
	}
	if !reflect.DeepEqual(tc.compiles[0].Features, []string{schemaBuildFeature}) {
		t.Errorf("schema build features: %v", tc.compiles[0].Features)
	}
	if len(tc.compiles[1].Features) != 0 {
		t.Errorf("production build features: %v", tc.compiles[1].Features)
	}
	if !strings.Contains(tc.compiles[0].TargetDir, "schema") {
		t.Errorf("schema target dir: %q", tc.compiles[0].TargetDir)
	}

	if res.Schema == nil || res.Schema.Version != schema.V3 {
		t.Fatalf("schema: %+v", res.Schema)
	}
	c, ok := res.Schema.Contracts["counter"]
	if !ok {
		t.Fatalf("contracts: %v", res.Schema.Contracts)
	}
	var eps []string
	for name := range c.Receive {
		eps = append(eps, name)
	}
	sort.Strings(eps)
	if !reflect.DeepEqual(eps, []string{"decrement", "increment"}) {
		t.Errorf("entrypoints: %v", eps)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data[:4], []byte{0, 0, 0, 1}) {
		t.Errorf("version tag: got % x", data[:4])
	}
	_, payload, err := artifact.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	_, custom, err := artifact.SplitPayload(payload)
	if err != nil {
		t.Fatalf("SplitPayload: %v", err)
	}
	if custom == nil || custom.Name != schema.SectionName {
		t.Fatalf("trailing custom section: %+v", custom)
	}
	embedded, err := schema.Deserialize(custom.Contents)
	if err != nil {
		t.Fatalf("embedded schema: %v", err)
	}
	if !reflect.DeepEqual(embedded, res.Schema) {
		t.Error("embedded schema differs from the built schema")
	}
	if !reflect.DeepEqual(embedded.Contracts["counter"], counterSchemaContract()) {
		t.Error("embedded contract schema differs from the source payload")
	}
}

func TestBuildContract_SchemaExportsMissing(t *testing.T) {
	tc := &fakeToolchain{
		targetDir:   t.TempDir(),
		plainModule: plainContractModule(),
		// The plain module has no schema-generation entry points; using it
		// for the schema build must fail extraction.
		schemaModule: plainContractModule(),
	}

	_, err := BuildContract(context.Background(), Options{
		Version:   artifact.V1,
		Schema:    SchemaJustBuild,
		Toolchain: tc,
	})
	var serr *cerrors.Error
	if !errors.As(err, &serr) || serr.Kind != cerrors.KindSchemaExtractionFailed {
		t.Fatalf("expected a schema extraction error, got %v", err)
	}
}

func TestBuildContract_InvalidOutputPathFailsEarly(t *testing.T) {
	tc := &fakeToolchain{targetDir: t.TempDir(), plainModule: plainContractModule()}

	_, err := BuildContract(context.Background(), Options{
		Version:   artifact.V1,
		Out:       "build/",
		Toolchain: tc,
	})
	var perr *cerrors.Error
	if !errors.As(err, &perr) || perr.Kind != cerrors.KindOutputPathInvalid {
		t.Fatalf("expected an output path error, got %v", err)
	}
	if len(tc.compiles) != 0 {
		t.Error("compilation ran despite the unusable output path")
	}
}

func TestBuildContract_V0RejectsStrayExport(t *testing.T) {
	// Rebuild the plain module with one extra non-contract export.
	types := bin.NewWriter()
	types.WriteU32(1)
	types.Byte(wasm.FuncTypeByte)
	types.WriteU32(0)
	types.WriteU32(0)
	funcs := bin.NewWriter()
	funcs.WriteU32(1)
	funcs.WriteU32(0)
	exports := bin.NewWriter()
	exports.WriteU32(1)
	exports.WriteName("foo")
	exports.Byte(wasm.KindFunc)
	exports.WriteU32(0)
	code := bin.NewWriter()
	code.WriteU32(1)
	code.WriteBytes(emptyBody())
	mod := assemble(
		section(wasm.SectionType, types.Bytes()),
		section(wasm.SectionFunction, funcs.Bytes()),
		section(wasm.SectionExport, exports.Bytes()),
		section(wasm.SectionCode, code.Bytes()),
	)

	tc := &fakeToolchain{targetDir: t.TempDir(), plainModule: mod}

	_, err := BuildContract(context.Background(), Options{Version: artifact.V0, Toolchain: tc})
	var verr *cerrors.Error
	if !errors.As(err, &verr) || verr.Kind != cerrors.KindValidationFailed || verr.Export != "foo" {
		t.Fatalf("expected an unexpected-export error, got %v", err)
	}

	// The same module is fine as a V1 contract.
	tc2 := &fakeToolchain{targetDir: t.TempDir(), plainModule: mod}
	if _, err := BuildContract(context.Background(), Options{Version: artifact.V1, Toolchain: tc2}); err != nil {
		t.Errorf("V1: unexpected error: %v", err)
	}
}
