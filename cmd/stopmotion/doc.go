// Command stopmotion assembles ordered still images into an H.264 MP4.
//
// encode runs a whole session non-interactively, inspect previews how each
// image will be placed on the frame canvas, and serve exposes an editing
// session over a loopback HTTP API.
package main
