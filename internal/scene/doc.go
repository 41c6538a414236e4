// Package scene persists the rig scene graph in SQLite and exposes the
// node/attribute operations the orchestration engine builds on.
//
// The Store manages the database connection, schema initialization, an
// advisory file lock that enforces single-process access, and the primitive
// contract the engine consumes: node creation, existence checks, deletion,
// renames, reparenting, attribute reads/writes, and typed kind walks used to
// discover components without an explicit index. Nodes form a forest through
// parent references; deleting a node drops its whole subtree and attributes.
//
// The store knows nothing about rigs or components. Domain vocabulary (node
// kinds, attribute keys) belongs to the packages that own the semantics.
package scene
