package sanitize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Sentinel errors for the input-validation taxonomy.
var (
	// ErrInvalidInput indicates a malformed tag, order-by clause, LIKE
	// pattern, or full-text query.
	ErrInvalidInput = errors.New("invalid input")

	// ErrOutOfRange indicates a limit or offset outside its allowed bounds.
	ErrOutOfRange = errors.New("out of range")
)

// Bounds for pagination values.
const (
	MaxLimit  = 1000
	MaxOffset = 100000
)

var tagPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

// orderColumns maps caller-facing column names to storage columns. Both the
// camelCase API names and the storage names themselves are accepted.
var orderColumns = map[string]string{
	"title":         "title_lower",
	"titleLower":    "title_lower",
	"title_lower":   "title_lower",
	"releaseTime":   "release_time",
	"release_time":  "release_time",
	"duration":      "duration",
	"lastAccessed":  "last_accessed",
	"last_accessed": "last_accessed",
	"accessCount":   "access_count",
	"access_count":  "access_count",
	"insertedAt":    "inserted_at",
	"inserted_at":   "inserted_at",
	"updatedAt":     "updated_at",
	"updated_at":    "updated_at",
	"claimId":       "claim_id",
	"claim_id":      "claim_id",
}

// Tag is a validated tag string, safe to bind as a query parameter or
// interpolate into generated SQL.
type Tag string

// OrderBy is a validated ordering fragment.
type OrderBy struct {
	Column    string // storage column name from the allow-list
	Direction string // "ASC" or "DESC"
}

// Clause renders the fragment as SQL text.
func (o OrderBy) Clause() string {
	return o.Column + " " + o.Direction
}

// LikePattern is an escaped LIKE operand. Queries using it must specify
// ESCAPE '\'.
type LikePattern string

// MatchQuery is a sanitized FTS5 match expression: a single literal phrase
// with no operators.
type MatchQuery string

// Limit is a validated row-count bound.
type Limit int

// Offset is a validated pagination offset.
type Offset int

// EventSink receives security events for rejected inputs. Implementations
// must not block and must not fail the calling operation.
type EventSink interface {
	RecordRejection(kind, offendingInput, source string)
}

// Sanitizer validates untrusted inputs and reports rejections to an optional
// event sink. The zero value is usable; New attaches a sink.
type Sanitizer struct {
	events EventSink
}

// New creates a Sanitizer reporting rejections to sink. A nil sink disables
// event reporting; validation behavior is identical either way.
func New(sink EventSink) *Sanitizer {
	return &Sanitizer{events: sink}
}

func (s *Sanitizer) reject(kind, input string) {
	if s == nil || s.events == nil {
		return
	}
	s.events.RecordRejection(kind, input, "query")
}

// Tag validates a single tag. Accepted tags match [A-Za-z0-9_-]{1,50} and are
// returned verbatim; everything else fails with ErrInvalidInput.
func (s *Sanitizer) Tag(input string) (Tag, error) {
	if !tagPattern.MatchString(input) {
		s.reject("tag", input)
		return "", fmt.Errorf("%w: tag %q", ErrInvalidInput, input)
	}
	return Tag(input), nil
}

// Tags validates a slice of tags, failing on the first invalid entry.
func (s *Sanitizer) Tags(inputs []string) ([]Tag, error) {
	tags := make([]Tag, 0, len(inputs))
	for _, in := range inputs {
		tag, err := s.Tag(in)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// OrderBy validates an "<column> [ASC|DESC]" string against the column
// allow-list. Direction is case-insensitive and defaults to ASC. Any token
// after a valid column that is not a direction fails closed.
func (s *Sanitizer) OrderBy(input string) (OrderBy, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 || len(fields) > 2 {
		s.reject("order_by", input)
		return OrderBy{}, fmt.Errorf("%w: order by %q", ErrInvalidInput, input)
	}

	column, ok := orderColumns[fields[0]]
	if !ok {
		s.reject("order_by", input)
		return OrderBy{}, fmt.Errorf("%w: order by column %q", ErrInvalidInput, fields[0])
	}

	direction := "ASC"
	if len(fields) == 2 {
		switch strings.ToUpper(fields[1]) {
		case "ASC":
			direction = "ASC"
		case "DESC":
			direction = "DESC"
		default:
			s.reject("order_by", input)
			return OrderBy{}, fmt.Errorf("%w: order by direction %q", ErrInvalidInput, fields[1])
		}
	}

	return OrderBy{Column: column, Direction: direction}, nil
}

// LikePattern escapes %, _, [ and \ so the input can be bound as a literal
// LIKE operand with ESCAPE '\'. Embedded NUL bytes are rejected.
func (s *Sanitizer) LikePattern(input string) (LikePattern, error) {
	if strings.ContainsRune(input, 0) {
		s.reject("like_pattern", input)
		return "", fmt.Errorf("%w: LIKE pattern contains NUL byte", ErrInvalidInput)
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		switch r {
		case '\\', '%', '_', '[':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return LikePattern(b.String()), nil
}

// MatchQuery sanitizes free text into an FTS5 literal-phrase query: the whole
// input is wrapped in double quotes with internal quotes doubled, so no FTS
// operator syntax survives. Empty or whitespace-only input and embedded NUL
// bytes are rejected.
func (s *Sanitizer) MatchQuery(input string) (MatchQuery, error) {
	if strings.TrimSpace(input) == "" {
		s.reject("fts_query", input)
		return "", fmt.Errorf("%w: empty full-text query", ErrInvalidInput)
	}
	if strings.ContainsRune(input, 0) {
		s.reject("fts_query", input)
		return "", fmt.Errorf("%w: full-text query contains NUL byte", ErrInvalidInput)
	}

	escaped := strings.ReplaceAll(input, `"`, `""`)
	return MatchQuery(`"` + escaped + `"`), nil
}

// Limit validates a row-count bound in 1..=MaxLimit.
func (s *Sanitizer) Limit(n int) (Limit, error) {
	if n < 1 || n > MaxLimit {
		s.reject("limit", fmt.Sprintf("%d", n))
		return 0, fmt.Errorf("%w: limit %d not in 1..=%d", ErrOutOfRange, n, MaxLimit)
	}
	return Limit(n), nil
}

// Offset validates a pagination offset in 0..=MaxOffset.
func (s *Sanitizer) Offset(n int) (Offset, error) {
	if n < 0 || n > MaxOffset {
		s.reject("offset", fmt.Sprintf("%d", n))
		return 0, fmt.Errorf("%w: offset %d not in 0..=%d", ErrOutOfRange, n, MaxOffset)
	}
	return Offset(n), nil
}
