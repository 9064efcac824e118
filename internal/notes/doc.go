// Package notes implements the multi-tenant note store.
//
// A Service owns a durable ordered map (see internal/store) and layers the
// note schema, identifier allocation and access control on top of it. Every
// operation receives the caller's Principal from the surrounding transport;
// nothing below the Service knows about ownership or sharing.
//
// Access rules:
//   - A note is readable by its owner and by every principal in shared_with.
//   - Only the owner may update, delete or share a note.
//   - GetByID reports "not found" for notes the caller cannot read, so
//     callers cannot probe for ids they have no access to.
//   - ListByOwner applies no caller check. This mirrors the system this
//     store replaces and is kept as an explicit policy.
//
// Identifier allocation is pluggable (see allocator.go). The default
// SizeAllocator assigns id = number of live notes, which can collide with a
// live note after a deletion; MonotonicAllocator never reuses an id.
//
// Each operation runs under the Service mutex, so readers never observe a
// partially applied write. There are no cross-operation transactions.
package notes
