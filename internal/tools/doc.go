// ABOUTME: Capability packs for Kotlin/Android development workflows.
// ABOUTME: Each pack returns descriptors ready for registry registration.

// Package tools provides the built-in capability packs: Kotlin and layout
// code generation, Gradle task execution, project analysis, and security
// helpers. Packs are plain descriptor lists; the dispatch layer owns
// validation, timeouts, auditing, and result normalization, so handlers
// here only do their leaf work and report a result.
package tools
