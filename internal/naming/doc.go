// Package naming resolves scene node names from preset rule templates.
//
// A preset bundles rule templates ("{component}_{side}_{id}_{type}") with
// token tables, most importantly the side labels and the sideSymmetry mapping
// the mirror engine uses to flip identities between sides. Presets are
// selected by name through the process configuration; the engine never
// hardcodes a naming scheme.
package naming
