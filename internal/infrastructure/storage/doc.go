// Package storage persists JSON documents under the hub's data directory.
//
// The on-disk layout is a typed directory tree:
//
//	Components/<uid>/configuration.json
//	Components/<uid>/settings.json
//	ComponentGroups/<uid>/configuration.json
//	ComponentGroups/<uid>/settings.json
//	ComponentGroups/<uid>/Components/<componentUid>/settings.json
//	ComponentGroups/<uid>/Macros/<macroUid>/settings.json
//	GlobalVariables/variables.json
//
// Reads happen at startup and on explicit reload; writes happen
// synchronously on committed registry mutations. A missing document is
// reported as not-found, never as an error; all other I/O errors are
// surfaced to the caller unchanged.
package storage
