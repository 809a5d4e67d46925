package build

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// TargetTriple is the compilation target for smart contract modules.
const TargetTriple = "wasm32-unknown-unknown"

// schemaBuildFeature enables schema emission in the contract's standard
// library during the schema build.
const schemaBuildFeature = "concordium-std/build-schema"

// Metadata is the subset of the compiler workspace metadata the pipeline
// needs.
type Metadata struct {
	// PackageName is the root package's name as declared in its manifest.
	PackageName string
	// TargetDirectory is the workspace's build output root.
	TargetDirectory string
}

// CompileRequest describes one compiler invocation.
type CompileRequest struct {
	// Dir is the project directory; empty means the current directory.
	Dir string
	// TargetDir overrides the build output directory so contract builds do
	// not pollute the caller's default build cache.
	TargetDir string
	// Features are extra feature flags, used by the schema build.
	Features []string
	// ExtraArgs are passed through to the compiler verbatim.
	ExtraArgs []string
}

// Toolchain abstracts the external compiler. The production implementation
// shells out to cargo; tests substitute a fake.
type Toolchain interface {
	// Metadata resolves the root package name and target directory.
	Metadata(ctx context.Context, dir string) (*Metadata, error)
	// Compile runs a release build for the wasm target, blocking until the
	// compiler exits. A non-zero exit is returned as an error; compiler
	// output is passed through to the user's terminal.
	Compile(ctx context.Context, req CompileRequest) error
}

// Cargo is the cargo-based Toolchain.
type Cargo struct{}

// Metadata runs `cargo metadata --no-deps` and extracts the root package.
func (Cargo) Metadata(ctx context.Context, dir string) (*Metadata, error) {
	cmd := exec.CommandContext(ctx, "cargo", "metadata", "--no-deps", "--format-version", "1")
	cmd.Dir = dir
	cmd.Stderr = os.Stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("could not access cargo metadata: %w", err)
	}

	var meta struct {
		Packages []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"packages"`
		Resolve *struct {
			Root string `json:"root"`
		} `json:"resolve"`
		TargetDirectory string `json:"target_directory"`
	}
	if err := json.Unmarshal(out, &meta); err != nil {
		return nil, fmt.Errorf("could not parse cargo metadata: %w", err)
	}

	if meta.Resolve != nil && meta.Resolve.Root != "" {
		for _, pkg := range meta.Packages {
			if pkg.ID == meta.Resolve.Root {
				return &Metadata{PackageName: pkg.Name, TargetDirectory: meta.TargetDirectory}, nil
			}
		}
	}
	if len(meta.Packages) == 1 {
		return &Metadata{PackageName: meta.Packages[0].Name, TargetDirectory: meta.TargetDirectory}, nil
	}
	return nil, fmt.Errorf("unable to determine the root package")
}

// Compile runs `cargo build --release --target wasm32-unknown-unknown` with
// the requested target directory, features and pass-through arguments.
func (Cargo) Compile(ctx context.Context, req CompileRequest) error {
	args := []string{"build", "--target", TargetTriple, "--release", "--target-dir", req.TargetDir}
	for _, f := range req.Features {
		args = append(args, "--features", f)
	}
	args = append(args, req.ExtraArgs...)

	cmd := exec.CommandContext(ctx, "cargo", args...)
	cmd.Dir = req.Dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("cargo build: %w", err)
	}
	return nil
}

// artifactPath is the deterministic location cargo leaves the compiled
// module at: the package name lowercased with hyphens replaced by
// underscores, under the release directory for the wasm target.
func artifactPath(targetDir, packageName string) string {
	return filepath.Join(targetDir, TargetTriple, "release", toSnakeCase(packageName)+".wasm")
}

func toSnakeCase(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "-", "_")
}
