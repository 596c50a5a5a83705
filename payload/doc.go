// Package payload converts log events into transport-ready payloads.
//
// # Building a Payload
//
// [Build] is pure: the same [LogEvent] always yields the same [Payload].
// Messages longer than [DefaultMaxLength] runes are truncated, keeping
// the prefix:
//
//	p := payload.Build(payload.LogEvent{
//		Level:   payload.LevelError,
//		Message: "db connection lost",
//		Time:    time.Now(),
//	})
//
// Use a [Builder] to pick a different cap.
package payload
