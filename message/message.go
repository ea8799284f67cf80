// Package message defines what flows through the dispatcher: a decoded request
// payload in, a printable outcome out.
package message

import "strings"

// Marker selects the procedure-call branch when it appears in a request.
const Marker = "<function>"

// callSuffix terminates a procedure-call request.
const callSuffix = "()"

// Request is one decoded frame payload.
type Request struct {
	Payload []byte
}

// Text returns the payload as a string.
func (r *Request) Text() string { return string(r.Payload) }

// IsCall reports whether the request takes the procedure-call branch.
func (r *Request) IsCall() bool { return strings.Contains(r.Text(), Marker) }

// ProcedureName extracts NAME from a request of the form "<function>NAME()".
// If the text does not have exactly that shape, ok is false and name is a
// best-effort rendering of whatever follows the marker, for error reporting.
func (r *Request) ProcedureName() (name string, ok bool) {
	text := r.Text()
	if rest, found := strings.CutPrefix(text, Marker); found {
		if name, found := strings.CutSuffix(rest, callSuffix); found {
			return name, name != ""
		}
		return rest, false
	}
	if _, after, found := strings.Cut(text, Marker); found {
		return strings.TrimSuffix(after, callSuffix), false
	}
	return "", false
}

// Call formats the request text that invokes name.
func Call(name string) string { return Marker + name + callSuffix }

// Status tags an Outcome.
type Status int

const (
	Success Status = iota
	Failure
)

func (s Status) String() string {
	if s == Failure {
		return "failure"
	}
	return "success"
}

// Outcome is the result of dispatching a Request. Text is sent back verbatim.
type Outcome struct {
	Status Status
	Text   string
}

// Succeeded builds a Success outcome.
func Succeeded(text string) *Outcome { return &Outcome{Status: Success, Text: text} }

// Failed builds a Failure outcome.
func Failed(text string) *Outcome { return &Outcome{Status: Failure, Text: text} }

// Failed reports whether o is a Failure.
func (o *Outcome) Failed() bool { return o.Status == Failure }
