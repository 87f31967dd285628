// Package schema validates decoded feed messages against the two known
// message kinds ("orders", "history") and produces typed rowsets.
//
// Validation is all-or-nothing: the first violated constraint anywhere in a
// message invalidates the entire message, and no store access happens for an
// invalidated message. Each constraint maps to a stable code that becomes the
// failure bucket in the stats histogram ("check failed: <code>").
//
// The positional column-to-field mapping is resolved exactly once here; the
// processors only ever see typed rows.
package schema
