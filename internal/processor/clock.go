package processor

import "time"

// nowUnix is the single call site for wall-clock time in this package, so
// tests can override it without reaching into the processor's public API.
var nowUnix = func() int64 { return time.Now().Unix() }
