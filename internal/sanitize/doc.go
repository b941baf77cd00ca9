// Package sanitize is the single trust boundary between untrusted strings or
// numbers and SQL text.
//
// Every dynamic fragment that reaches the query engine — tag filters, ORDER BY
// clauses, LIKE operands, FTS5 match expressions, limits and offsets — must
// first pass through a Sanitizer method. Accepted inputs come back as typed
// fragment values (Tag, OrderBy, LikePattern, MatchQuery, Limit, Offset); the
// query engine never concatenates raw caller strings.
//
// Rejections return ErrInvalidInput or ErrOutOfRange and report a security
// event to the configured EventSink before the error propagates. Reporting is
// fire-and-forget and never fails the originating operation.
package sanitize
