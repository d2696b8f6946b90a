package diag

import "testing"

// TestNilSinkMethodsDoNotPanic covers the package's core promise: a nil
// *Sink is valid and every method on it is a no-op, so callers that don't
// want diagnostics can pass nil without branching.
func TestNilSinkMethodsDoNotPanic(t *testing.T) {
	var s *Sink
	s.Debug("ignored")
	s.Info("ignored")
	s.Warn("ignored")
	s.Error("ignored")
}

func TestRootSinkAndScopedSinkDoNotPanic(t *testing.T) {
	RootSink().Info("root message")
	ScopedSink("openai").Info("scoped message", "key", "value")
}

func TestSetupDoesNotPanic(t *testing.T) {
	Setup(Config{Verbose: true})
	Setup(Config{Verbose: false, Timestamps: BoolPtr(false)})
}
