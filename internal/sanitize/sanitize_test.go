package sanitize

import (
	"errors"
	"strings"
	"testing"
)

type recordingSink struct {
	events []string
}

func (r *recordingSink) RecordRejection(kind, input, source string) {
	r.events = append(r.events, kind)
}

// TestTagAcceptsIdentity verifies that accepted tags pass through verbatim.
func TestTagAcceptsIdentity(t *testing.T) {
	t.Parallel()

	s := New(nil)

	valid := []string{
		"movie",
		"Movie",
		"sci-fi",
		"music_video",
		"2024",
		"a",
		strings.Repeat("x", 50),
		"UPPER-lower_123",
	}

	for _, input := range valid {
		tag, err := s.Tag(input)
		if err != nil {
			t.Errorf("Tag(%q) failed: %v", input, err)
			continue
		}
		if string(tag) != input {
			t.Errorf("Tag(%q) = %q, want identity", input, tag)
		}
	}
}

func TestTagRejects(t *testing.T) {
	t.Parallel()

	s := New(nil)

	invalid := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"space", "two words"},
		{"leading space", " movie"},
		{"too long", strings.Repeat("x", 51)},
		{"semicolon", "movie;"},
		{"quote", "mov'ie"},
		{"double quote", `mov"ie`},
		{"sql injection", "x' OR '1'='1"},
		{"drop table", "x;DROP TABLE items"},
		{"percent", "mov%"},
		{"parens", "movie()"},
		{"unicode", "café"},
		{"newline", "movie\n"},
		{"nul", "movie\x00"},
		{"comment", "movie--"},
	}

	for _, tt := range invalid {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := s.Tag(tt.input); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Tag(%q) = %v, want ErrInvalidInput", tt.input, err)
			}
		})
	}
}

func TestOrderBy(t *testing.T) {
	t.Parallel()

	s := New(nil)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"column only defaults asc", "releaseTime", "release_time ASC", false},
		{"explicit desc", "releaseTime DESC", "release_time DESC", false},
		{"lowercase direction", "releaseTime desc", "release_time DESC", false},
		{"mixed case direction", "duration Asc", "duration ASC", false},
		{"storage column name", "release_time DESC", "release_time DESC", false},
		{"title maps to indexed column", "title ASC", "title_lower ASC", false},
		{"last accessed", "lastAccessed ASC", "last_accessed ASC", false},
		{"access count", "accessCount DESC", "access_count DESC", false},
		{"claim id tie break", "claimId ASC", "claim_id ASC", false},
		{"extra whitespace", "  releaseTime   DESC  ", "release_time DESC", false},
		{"empty", "", "", true},
		{"unknown column", "password DESC", "", true},
		{"semicolon", "releaseTime; DROP TABLE items", "", true},
		{"quoted column", "'releaseTime'", "", true},
		{"parens", "releaseTime) --", "", true},
		{"brackets", "releaseTime[0]", "", true},
		{"braces", "releaseTime{}", "", true},
		{"trailing garbage", "releaseTime DESC LIMIT 1", "", true},
		{"bad direction", "releaseTime SIDEWAYS", "", true},
		{"direction only", "DESC", "", true},
		{"subquery", "(SELECT 1)", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ob, err := s.OrderBy(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("OrderBy(%q) = %v, want ErrInvalidInput", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("OrderBy(%q) failed: %v", tt.input, err)
			}
			if got := ob.Clause(); got != tt.want {
				t.Errorf("OrderBy(%q).Clause() = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestOrderByRejectsMetacharacters appends SQL metacharacters to a valid
// column and expects every combination to fail closed.
func TestOrderByRejectsMetacharacters(t *testing.T) {
	t.Parallel()

	s := New(nil)

	for _, meta := range []string{";", "'", `"`, "(", ")", "[", "]", "{", "}"} {
		input := "releaseTime" + meta
		if _, err := s.OrderBy(input); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("OrderBy(%q) = %v, want ErrInvalidInput", input, err)
		}
	}
}

func TestLikePattern(t *testing.T) {
	t.Parallel()

	s := New(nil)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "hello", "hello"},
		{"percent", "100%", `100\%`},
		{"underscore", "my_file", `my\_file`},
		{"bracket", "[draft]", `\[draft]`},
		{"backslash", `a\b`, `a\\b`},
		{"all metacharacters", `%_[\`, `\%\_\[\\`},
		{"empty is allowed", "", ""},
		{"spaces and punctuation", "hello, world!", "hello, world!"},
		{"quotes pass through", `it's "quoted"`, `it's "quoted"`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := s.LikePattern(tt.input)
			if err != nil {
				t.Fatalf("LikePattern(%q) failed: %v", tt.input, err)
			}
			if string(got) != tt.want {
				t.Errorf("LikePattern(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLikePatternRejectsNUL(t *testing.T) {
	t.Parallel()

	s := New(nil)
	if _, err := s.LikePattern("abc\x00def"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("LikePattern with NUL = %v, want ErrInvalidInput", err)
	}
}

func TestMatchQuery(t *testing.T) {
	t.Parallel()

	s := New(nil)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"simple word", "vacation", `"vacation"`, false},
		{"multiple words", "summer vacation", `"summer vacation"`, false},
		{"internal quotes doubled", `my "special" video`, `"my ""special"" video"`, false},
		{"fts operators neutralized", "a OR b NOT c", `"a OR b NOT c"`, false},
		{"star neutralized", "prefix*", `"prefix*"`, false},
		{"column filter neutralized", "title:secret", `"title:secret"`, false},
		{"empty", "", "", true},
		{"whitespace only", "   \t ", "", true},
		{"nul byte", "a\x00b", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := s.MatchQuery(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("MatchQuery(%q) = %v, want ErrInvalidInput", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("MatchQuery(%q) failed: %v", tt.input, err)
			}
			if string(got) != tt.want {
				t.Errorf("MatchQuery(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLimitBounds(t *testing.T) {
	t.Parallel()

	s := New(nil)

	tests := []struct {
		n       int
		wantErr bool
	}{
		{0, true},
		{1, false},
		{500, false},
		{1000, false},
		{1001, true},
		{-1, true},
	}

	for _, tt := range tests {
		tt := tt
		_, err := s.Limit(tt.n)
		if tt.wantErr && !errors.Is(err, ErrOutOfRange) {
			t.Errorf("Limit(%d) = %v, want ErrOutOfRange", tt.n, err)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("Limit(%d) failed: %v", tt.n, err)
		}
	}
}

func TestOffsetBounds(t *testing.T) {
	t.Parallel()

	s := New(nil)

	tests := []struct {
		n       int
		wantErr bool
	}{
		{-1, true},
		{0, false},
		{100000, false},
		{100001, true},
	}

	for _, tt := range tests {
		tt := tt
		_, err := s.Offset(tt.n)
		if tt.wantErr && !errors.Is(err, ErrOutOfRange) {
			t.Errorf("Offset(%d) = %v, want ErrOutOfRange", tt.n, err)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("Offset(%d) failed: %v", tt.n, err)
		}
	}
}

func TestTagsValidatesAll(t *testing.T) {
	t.Parallel()

	s := New(nil)

	tags, err := s.Tags([]string{"movie", "comedy"})
	if err != nil {
		t.Fatalf("Tags(valid) failed: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("Tags returned %d tags, want 2", len(tags))
	}

	if _, err := s.Tags([]string{"movie", "bad tag"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Tags with invalid entry = %v, want ErrInvalidInput", err)
	}
}

// TestRejectionsReachSink verifies the security-event side effect fires on
// every rejection and never on acceptance.
func TestRejectionsReachSink(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	s := New(sink)

	s.Tag("ok-tag")
	s.Tag("bad tag!")
	s.OrderBy("nope")
	s.MatchQuery("")
	s.Limit(0)
	s.Offset(-5)

	want := []string{"tag", "order_by", "fts_query", "limit", "offset"}
	if len(sink.events) != len(want) {
		t.Fatalf("sink saw %d events (%v), want %d", len(sink.events), sink.events, len(want))
	}
	for i, kind := range want {
		if sink.events[i] != kind {
			t.Errorf("event %d = %q, want %q", i, sink.events[i], kind)
		}
	}
}

func TestNilSanitizerReject(t *testing.T) {
	t.Parallel()

	// A Sanitizer without a sink must still validate correctly.
	var s Sanitizer
	if _, err := s.Tag("valid"); err != nil {
		t.Errorf("zero-value Sanitizer rejected a valid tag: %v", err)
	}
	if _, err := s.Tag("in valid"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero-value Sanitizer accepted an invalid tag")
	}
}
