// Package blob provides the chunk source the file codec reads from, a
// bounded chunk fold with cancellation checks at every chunk boundary, and
// write buffers whose contents can be re-read as a source.
package blob
