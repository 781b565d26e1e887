// Package watch notifies callers when a file on disk changes.
//
// File watches the parent directory rather than the file itself, so a
// replacement by rename (atomic-save editors, exporters that write a temp
// file and move it into place) is seen as a Create of the watched name.
package watch
