package il

// Diag is one line of structured output flowing through a DiagSink: a
// stable code, a human-readable message, and an optional source
// location.
type Diag struct {
	Code    string
	Message string
	Loc     Loc
}

// DiagSink is the small capability record the verifier, transform
// passes, and the VM accept for diagnostic/trace output, instead of a
// global logger singleton (spec §9: "prefer small capability records ...
// over deep class hierarchies" — the same shape as the teacher's own
// Frontend.Logf/Warnl methods, here a plain func field rather than an
// interface method set since nothing else about a sink varies). The zero
// value discards every Diag.
type DiagSink struct {
	Report func(Diag)
}

// Emit reports d through s, or does nothing if s has no Report func.
func (s DiagSink) Emit(d Diag) {
	if s.Report != nil {
		s.Report(d)
	}
}
