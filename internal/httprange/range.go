package httprange

import (
	"fmt"
	"strconv"
	"strings"
)

const bytesPrefix = "bytes="

// ByteRange is an inclusive [Start, End] span within a resource.
type ByteRange struct {
	Start uint64
	End   uint64
}

// Length returns the number of bytes the span covers.
func (r ByteRange) Length() uint64 {
	return r.End - r.Start + 1
}

// ContentRange renders the Content-Range header value for a resource of
// totalLength bytes.
func (r ByteRange) ContentRange(totalLength uint64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, totalLength)
}

// InvalidRangeError reports a Range header that could not be resolved. It
// carries the original header text for diagnostics.
type InvalidRangeError struct {
	Header string
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range %q: %s", e.Header, e.Reason)
}

// Resolve parses a Range header against contentLength and returns the
// inclusive byte span it selects.
//
// Supported forms:
//
//	bytes=N-M   full range; end is clamped to contentLength-1
//	bytes=N-    from N to the end of the resource
//	bytes=-N    suffix: the trailing N bytes (clamped to the resource size)
//
// Every successful parse must still satisfy start <= end and
// start < contentLength. A zero contentLength rejects all ranges.
func Resolve(header string, contentLength uint64) (ByteRange, error) {
	fail := func(reason string) (ByteRange, error) {
		return ByteRange{}, &InvalidRangeError{Header: header, Reason: reason}
	}

	if !strings.HasPrefix(header, bytesPrefix) {
		return fail("missing bytes= prefix")
	}

	spec := header[len(bytesPrefix):]
	dash := strings.Count(spec, "-")
	if dash != 1 {
		return fail("range spec must contain exactly one dash")
	}

	startStr, endStr, _ := strings.Cut(spec, "-")

	var start, end uint64
	switch {
	case startStr == "":
		// Suffix form: the trailing N bytes.
		suffix, err := strconv.ParseUint(endStr, 10, 64)
		if err != nil {
			return fail("unparsable suffix length")
		}
		if suffix > contentLength {
			suffix = contentLength
		}
		start = contentLength - suffix
		if contentLength == 0 {
			// start == end == 0 would pass the bounds check below on a
			// zero-length resource; reject before that.
			return fail("empty resource")
		}
		end = contentLength - 1

	case endStr == "":
		// Open-ended form: from start to the end of the resource.
		var err error
		start, err = strconv.ParseUint(startStr, 10, 64)
		if err != nil {
			return fail("unparsable start")
		}
		if contentLength == 0 {
			return fail("empty resource")
		}
		end = contentLength - 1

	default:
		var err error
		start, err = strconv.ParseUint(startStr, 10, 64)
		if err != nil {
			return fail("unparsable start")
		}
		end, err = strconv.ParseUint(endStr, 10, 64)
		if err != nil {
			return fail("unparsable end")
		}
		if contentLength == 0 {
			return fail("empty resource")
		}
		// Clamp rather than reject an end past the resource.
		if end > contentLength-1 {
			end = contentLength - 1
		}
	}

	if start > end {
		return fail("start after end")
	}
	if start >= contentLength {
		return fail("start beyond resource")
	}

	return ByteRange{Start: start, End: end}, nil
}
