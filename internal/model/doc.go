// Package model defines the persisted Note schema and its record codec.
//
// This package contains the schema only. Every other internal package imports
// model; model imports nothing internal, so the record format stays the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Records are canonical JSON (sorted keys, no HTML escaping) so that the
//     same Note always encodes to the same bytes
//   - DecodeNote is the exact inverse of EncodeNote and rejects anything
//     EncodeNote could not have produced
//   - All JSON keys use snake_case
//   - Principals are opaque: compared for equality, never parsed
package model
