// Package harness runs conformance scenarios against the note store.
//
// Each scenario executes on a fresh in-memory store with a deterministic
// logical clock and fixed trace ids, so the same scenario always produces a
// byte-identical trace. Steps call the real notes.Service; the outcome of
// every step is checked against its expect clause and recorded in the trace.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	allocator: size            # or monotonic; default size
//	trace_prefix: scn          # optional; trace ids become scn-0001, ...
//	setup:
//	  - as: alice
//	    op: add_note
//	    args: { content: "seed" }
//	flow:
//	  - as: bob
//	    op: get_by_id
//	    args: { id: 0 }
//	    expect:
//	      case: NotFound
//	assertions:
//	  - type: visible_to
//	    principal: alice
//	    ids: [0]
//	  - type: note
//	    id: 0
//	    expect: { owner: alice, shared_with: [] }
//
// Setup steps must all succeed. A flow step without an expect clause must
// succeed. Unknown fields anywhere in the file are rejected.
//
// # Operations
//
//	list_visible                 -
//	get_by_id                    id
//	list_by_owner                owner
//	add_note                     content
//	update_note                  id, content
//	delete_note                  id
//	share_note                   id, principal
//	whoami                       -
//
// # Outcome Cases
//
// Success, NotFound, PermissionDenied, AlreadyShared. A get_by_id for a note
// the caller cannot read reports NotFound.
//
// # Assertions
//
//	visible_to   principal, ids   list_visible for principal returns exactly ids
//	owned_by     principal, ids   list_by_owner for principal returns exactly ids
//	note         id, expect       the stored note matches expect (subset)
//	absent       id               no note is stored under id
//	count        count            number of stored notes
//	trace_count  op, count        number of invocations of op in the trace
//
// # Golden Files
//
// The trace serializes to canonical JSON (see Snapshot). Tests compare it
// with testdata/golden/<name>.golden through goldie; the CLI test command
// compares against a golden directory of the same layout.
package harness
