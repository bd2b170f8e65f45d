// Package def implements a reader for DEF files, the sprite and animation
// containers used by Heroes of Might and Magic III.
//
// A DEF file carries a small header describing the canvas, a 256-entry
// palette, a table of animation groups naming their frames, and the frames
// themselves, each compressed with one of four run-length schemes.
//
// The package works purely on in-memory buffers. Locating files and pulling
// them out of LOD archives is left to the caller (see package lod), and so is
// turning palette indices into colors; Frame.Paletted is provided as a
// convenience for the latter.
package def
