// Package descriptor defines the serializable records that describe a rig
// component: its identity, parent link, guide and skeleton layers, constraint
// connections, and space-switch bookkeeping.
//
// Descriptors are plain data. They carry no scene handles and no behavior
// beyond copying, reference remapping, and JSON round trips, which keeps them
// safe to persist on scene nodes and to embed in rig templates. The engine in
// internal/rig owns every mutation ordering rule; this package only promises
// that a descriptor written with Marshal and read back with Unmarshal is the
// same descriptor.
package descriptor
