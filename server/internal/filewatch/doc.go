// Package filewatch reports changes to a single file, including atomic
// replaces done by renaming another file over it.
//
// The watch is placed on the file's directory because an inode watch on the
// file itself is lost as soon as the file is renamed over or removed.
// Events for other files in the directory are ignored.
package filewatch
