// Package streaming protects media range serving from slow or disconnected
// clients. A stalled player can otherwise hold a file handle and a
// goroutine for as long as the kernel keeps the socket open.
//
// TimeoutWriter wraps http.ResponseWriter with a per-write timeout, an
// idle timeout between successful writes, and chunked flushing so players
// start decoding before the full range arrives.
package streaming
