package phase

import "fmt"

// Phase tracks how far a compilation has progressed.
//
// Phase progression is sequential:
// - NotStarted -> Validated -> MIRGenerated -> MIRVerified
// - MIRVerified -> Optimized -> LIRLowered -> Emitted
//
// The debug level skips optimization, so Optimized is reached without
// rewriting anything; the phase still records that the slot was passed.
type Phase int

const (
	PhaseNotStarted   Phase = iota // typed tree loaded
	PhaseValidated                 // integration contract checked
	PhaseMIRGenerated              // depth copies and loop iterations built
	PhaseMIRVerified               // MIR well-formedness checked
	PhaseOptimized                 // release passes run
	PhaseLIRLowered                // flattened to guarded commands
	PhaseEmitted                   // command text produced
)

// Prerequisites maps each phase to the phase that must precede it.
var Prerequisites = map[Phase]Phase{
	PhaseValidated:    PhaseNotStarted,
	PhaseMIRGenerated: PhaseValidated,
	PhaseMIRVerified:  PhaseMIRGenerated,
	PhaseOptimized:    PhaseMIRVerified,
	PhaseLIRLowered:   PhaseOptimized,
	PhaseEmitted:      PhaseLIRLowered,
}

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "NotStarted"
	case PhaseValidated:
		return "Validated"
	case PhaseMIRGenerated:
		return "MIRGenerated"
	case PhaseMIRVerified:
		return "MIRVerified"
	case PhaseOptimized:
		return "Optimized"
	case PhaseLIRLowered:
		return "LIRLowered"
	case PhaseEmitted:
		return "Emitted"
	default:
		return "Unknown"
	}
}

// Advance moves *cur to next when next directly follows it.
func Advance(cur *Phase, next Phase) error {
	want, ok := Prerequisites[next]
	if !ok || *cur != want {
		return fmt.Errorf("cannot advance from %s to %s", *cur, next)
	}
	*cur = next
	return nil
}
