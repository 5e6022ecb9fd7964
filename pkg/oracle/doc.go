// Package oracle provides the LLM-backed judgment capability that classifies
// whether and how two knowledge units relate.
//
// The Client interface returns raw model output; ParseVerdict turns that
// output into a structured Verdict, tolerating prose wrappers, code fences,
// and mildly malformed JSON. Anything unparseable degrades to "not related"
// at the call site rather than erroring. Retry and circuit-breaker wrappers
// harden the network path.
package oracle
