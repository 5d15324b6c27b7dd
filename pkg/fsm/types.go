// Package fsm provides the deterministic finite-state machine kernel:
// the unified data model for DFA, Moore, Mealy and DFSM variants, plus
// the generator, reachability pruner, minimizer and compactor that
// operate on it.
package fsm

// Type identifies which of the four deterministic variants a Machine is.
type Type int

const (
	TypeDFSM Type = iota + 1
	TypeMealy
	TypeMoore
	TypeDFA
)

// String returns the canonical name used in diagnostics and filenames.
// The text file format's numeric variant tag comes from fsmfile.VariantTag.
func (t Type) String() string {
	switch t {
	case TypeDFSM:
		return "DFSM"
	case TypeMealy:
		return "Mealy"
	case TypeMoore:
		return "Moore"
	case TypeDFA:
		return "DFA"
	default:
		return "Invalid"
	}
}

// State, Input and Output are the three identifier domains. All three
// are plain non-negative integers; sentinel values are negative
// constants rather than a distinct type.
type State int
type Input int
type Output int

const (
	// NullState marks the absence of a transition.
	NullState State = -1
	// WrongState is returned by queries on an invalid state or input.
	WrongState State = -2

	// StoutInput selects a state's own output in an output query
	// instead of advancing along a transition.
	StoutInput Input = -1
	// EpsilonInput is reserved for nondeterministic variants; it is
	// never produced or accepted by any deterministic operation here.
	EpsilonInput Input = -2

	// DefaultOutput marks an absent/unassigned output.
	DefaultOutput Output = -1
	// WrongOutput is returned by queries on an invalid state or input.
	WrongOutput Output = -2
)

// capabilities describes what storage a variant carries and what
// limits apply to its output alphabet, derived once from the Type tag
// so every algorithm below dispatches on capability, not on type.
type capabilities struct {
	hasStateOutputs      bool
	hasTransitionOutputs bool
	outputsGrowable      bool
}

func capsFor(t Type) capabilities {
	switch t {
	case TypeDFSM:
		return capabilities{hasStateOutputs: true, hasTransitionOutputs: true, outputsGrowable: true}
	case TypeMealy:
		return capabilities{hasStateOutputs: false, hasTransitionOutputs: true, outputsGrowable: true}
	case TypeMoore:
		return capabilities{hasStateOutputs: true, hasTransitionOutputs: false, outputsGrowable: true}
	case TypeDFA:
		return capabilities{hasStateOutputs: true, hasTransitionOutputs: false, outputsGrowable: false}
	default:
		return capabilities{}
	}
}

// maxOutputsFor returns the variant-specific ceiling on O for a machine
// with n states and i inputs.
func maxOutputsFor(t Type, n int, i int) int {
	switch t {
	case TypeDFA:
		return 2
	case TypeMoore:
		return n
	case TypeMealy:
		return n * i
	case TypeDFSM:
		return n * (1 + i)
	default:
		return 0
	}
}

// Sequence is a finite ordered list of input symbols. It may contain
// StoutInput to request a state-output sample at that position.
type Sequence []Input

// OutputSequence is a finite ordered list of outputs.
type OutputSequence []Output

// Less orders input sequences first by length, then lexicographically,
// treating a StoutInput-prefixed sequence as less than a non-prefixed
// sequence of the same length.
func (s Sequence) Less(other Sequence) bool {
	if len(s) != len(other) {
		return len(s) < len(other)
	}
	if len(s) == 0 {
		return false
	}
	sStout := s[0] == StoutInput
	oStout := other[0] == StoutInput
	if sStout != oStout {
		return sStout
	}
	for i := range s {
		if s[i] != other[i] {
			return s[i] < other[i]
		}
	}
	return false
}
