// Package httprange resolves HTTP Range headers against a known content
// length.
//
// Resolve is a pure function: it retains no state between calls and is safe
// to invoke from any number of concurrent request handlers. The transport
// layer is responsible for emitting the corresponding partial-content
// response; this package only decides which inclusive byte span, if any, a
// header selects.
package httprange
