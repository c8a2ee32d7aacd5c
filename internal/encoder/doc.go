// Package encoder drives the external video encoder.
//
// The encoder owns a private scratch directory that acts as its virtual
// filesystem: callers write numbered frames into it, run one encode over the
// whole set, read the output back and delete everything afterwards. The
// directory is guarded by a file lock so two processes never share it.
package encoder
