// Package build packages compiled smart contracts into deployable versioned
// modules.
//
// The pipeline is strictly sequential: an optional schema build (compile
// with the schema feature, execute the schema-generation entry points,
// decode the per-contract schemas), the production compile, skeleton
// parsing, custom-section stripping, import and export validation, versioned
// encoding with an optional embedded schema section, and the final write.
// Every failure is terminal for the invocation and carries the stage and
// cause; nothing is retried.
package build
