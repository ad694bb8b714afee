package game

// PolicyKind selects when a session reveals new units.
type PolicyKind int

const (
	// RevealOnWrongGuess reveals Step units after every wrong guess.
	RevealOnWrongGuess PolicyKind = iota
	// RevealOnDemand reveals one unit per explicit request, up to Cap in total.
	RevealOnDemand
	// RevealTimeDriven never reveals; an external countdown ends the session.
	RevealTimeDriven
)

// String returns the catalogue name of the policy kind.
func (k PolicyKind) String() string {
	switch k {
	case RevealOnDemand:
		return "on_demand"
	case RevealTimeDriven:
		return "time_driven"
	default:
		return "on_wrong_guess"
	}
}

// Policy is the reveal strategy a mode picks at construction.
type Policy struct {
	Kind    PolicyKind
	Step    int // units per wrong guess (RevealOnWrongGuess)
	Cap     int // total revealed units, initial ones included (RevealOnDemand)
	Initial int // units visible before the first guess
}

// OnWrongGuess reveals n units after each wrong guess.
func OnWrongGuess(n int) Policy {
	if n < 1 {
		n = 1
	}
	return Policy{Kind: RevealOnWrongGuess, Step: n}
}

// OnDemand reveals one unit per request, capped at limit units in total.
func OnDemand(limit int) Policy {
	return Policy{Kind: RevealOnDemand, Cap: limit}
}

// TimeDriven reveals nothing; the session is ended by Expire.
func TimeDriven() Policy {
	return Policy{Kind: RevealTimeDriven}
}

// WithInitial returns a copy of p that shows k units up front.
func (p Policy) WithInitial(k int) Policy {
	if k < 0 {
		k = 0
	}
	p.Initial = k
	return p
}

// ParsePolicy builds a policy from catalogue fields.
func ParsePolicy(kind string, step, limit, initial int) Policy {
	var p Policy
	switch kind {
	case "on_demand":
		p = OnDemand(limit)
	case "time_driven":
		p = TimeDriven()
	default:
		p = OnWrongGuess(step)
	}
	return p.WithInitial(initial)
}
