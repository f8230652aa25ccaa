// Package textutil provides text normalization helpers shared by discovery,
// descriptor parsing, and export.
//
// Matching helpers fold case and normalize Unicode so directory names and
// filename tokens compare equal regardless of how the recording software
// spelled them. Sanitizers produce channel names and file names that are safe
// to use as store keys and filesystem paths.
package textutil
