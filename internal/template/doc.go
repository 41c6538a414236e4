// Package template stores rig templates as JSON documents on disk.
//
// A template is the portable form of a rig: its name, the guide-level
// descriptors of every component and the rig configuration overrides. The
// Manager resolves templates by name across an ordered list of directories,
// so studio-wide libraries can sit behind per-project ones.
package template
