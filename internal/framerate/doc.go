// Package framerate holds the authoritative playback rate and validates
// user-entered rate text before it reaches it.
package framerate
