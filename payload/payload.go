package payload

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength is the body cap used by Build. It leaves room for the
// code fence the webhook wraps around a 2000 character message.
const DefaultMaxLength = 1994

// Builder turns LogEvents into Payloads. The zero value uses DefaultMaxLength.
type Builder struct {
	MaxLength int
}

// Build converts e using DefaultMaxLength.
func Build(e LogEvent) Payload {
	return Builder{}.Build(e)
}

// Build converts e into a Payload, truncating the message to at most
// b.MaxLength runes.
func (b Builder) Build(e LogEvent) Payload {
	limit := b.MaxLength
	if limit <= 0 {
		limit = DefaultMaxLength
	}

	return Payload{
		Body:  truncate(e.Message, limit),
		Level: e.Level,
		Time:  e.Time,
	}
}

// Join concatenates the bodies of batch, in order, one per line.
func Join(batch []Payload) string {
	switch len(batch) {
	case 0:
		return ""
	case 1:
		return batch[0].Body
	}

	var sb strings.Builder
	for i, p := range batch {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(p.Body)
	}

	return sb.String()
}

// truncate keeps the first limit runes of s.
func truncate(s string, limit int) string {
	if len(s) <= limit { // byte length bounds rune count
		return s
	}

	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}

	return s
}

// Len reports the rune count of s. Transport size limits are expressed
// in characters, not bytes.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}
