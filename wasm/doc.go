// Package wasm provides section-level parsing and encoding of WebAssembly
// binaries for smart contract packaging.
//
// Unlike a general-purpose decoder, this package keeps section payloads as
// raw bytes and only decodes the tables the packaging pipeline needs: the
// type, import and export sections, and custom sections. Parsing followed by
// encoding reproduces the input byte-for-byte, which is what allows the
// build pipeline to strip custom sections and re-emit a canonical module.
//
// Typical use:
//
//	sk, err := wasm.ParseSkeleton(data)
//	if err != nil {
//	    return err
//	}
//	sk.Strip()
//	mod, err := wasm.Validate(allowed, sk)
//
// The validated Module view exposes the export table used by the export-name
// checks in the build package.
package wasm
