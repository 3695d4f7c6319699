package agent

// IterationState tracks the loop's retry budgets across iterations.
// Model retries and parse retries are independent counters; each resets on
// the first subsequent success, so only consecutive failures exhaust a
// budget.
type IterationState struct {
	CurrentIteration int
	MaxIterations    int

	ModelRetries    int
	ModelRetryLimit int

	ParseRetries    int
	ParseRetryLimit int

	LastErrorMessage string
}

// RecordModelSuccess resets model failure tracking after a completed call.
func (s *IterationState) RecordModelSuccess() {
	s.ModelRetries = 0
	s.LastErrorMessage = ""
}

// RecordModelFailure records a failed model call. Returns true while the
// retry budget allows another attempt.
func (s *IterationState) RecordModelFailure(errMsg string) bool {
	s.ModelRetries++
	s.LastErrorMessage = errMsg
	return s.ModelRetries <= s.ModelRetryLimit
}

// RecordParseSuccess resets parse failure tracking after a valid directive.
func (s *IterationState) RecordParseSuccess() {
	s.ParseRetries = 0
}

// RecordParseFailure records an unparsable response. Returns true while the
// self-correction budget allows another attempt.
func (s *IterationState) RecordParseFailure(errMsg string) bool {
	s.ParseRetries++
	s.LastErrorMessage = errMsg
	return s.ParseRetries <= s.ParseRetryLimit
}

// AtIterationBound reports whether the completed-iteration budget is spent.
func (s *IterationState) AtIterationBound() bool {
	return s.CurrentIteration >= s.MaxIterations
}
