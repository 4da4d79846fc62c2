package pipeline

// State is a step of the upload state machine.
//
//	received -> parsed -> attempting_ai -> ai_succeeded -> validated -> sanitized -> complete
//	                                    \-> ai_failed -> heuristic -/
//	received|parsed -> failed
type State string

const (
	StateReceived     State = "received"
	StateParsed       State = "parsed"
	StateAttemptingAI State = "attempting_ai"
	StateAISucceeded  State = "ai_succeeded"
	StateAIFailed     State = "ai_failed"
	StateHeuristic    State = "heuristic"
	StateValidated    State = "validated"
	StateSanitized    State = "sanitized"
	StateComplete     State = "complete"
	StateFailed       State = "failed"
)

var transitions = map[State][]State{
	StateReceived:     {StateParsed, StateFailed},
	StateParsed:       {StateAttemptingAI, StateHeuristic, StateFailed},
	StateAttemptingAI: {StateAISucceeded, StateAIFailed, StateFailed},
	StateAISucceeded:  {StateValidated, StateFailed},
	StateAIFailed:     {StateHeuristic, StateFailed},
	StateHeuristic:    {StateValidated, StateFailed},
	StateValidated:    {StateSanitized, StateFailed},
	StateSanitized:    {StateComplete, StateFailed},
}

// CanTransition reports whether next may follow s.
func (s State) CanTransition(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == StateComplete || s == StateFailed }

// trace records the path one upload took through the machine.
type trace struct {
	states []State
}

func newTrace() *trace { return &trace{states: []State{StateReceived}} }

func (t *trace) current() State { return t.states[len(t.states)-1] }

func (t *trace) to(next State) {
	if !t.current().CanTransition(next) {
		panic("pipeline: illegal transition " + string(t.current()) + " -> " + string(next))
	}
	t.states = append(t.states, next)
}
