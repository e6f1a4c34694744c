// Package value provides helpers for the dynamic, JSON-shaped values
// attached to components, groups, associations, and bus messages.
//
// A value is null, bool, number, string, array, or object — whatever
// encoding/json produces when decoding into any. The registries coalesce
// writes by deep equality and return defensive deep copies; both
// operations live here so every registry compares and clones the same way.
package value
