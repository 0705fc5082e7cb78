// Package consensus holds the engine state types the harness round-trips
// through WAL snapshots, together with their binary wire codec. The
// harness does not interpret these values beyond encoding and decoding.
package consensus

import "fmt"

// Step identifies the round phase a node was in when it persisted its
// WAL state.
type Step uint8

const (
	StepPropose Step = iota
	StepPrevote
	StepPrecommit
	StepCommit
)

func (s Step) String() string {
	switch s {
	case StepPropose:
		return "propose"
	case StepPrevote:
		return "prevote"
	case StepPrecommit:
		return "precommit"
	case StepCommit:
		return "commit"
	default:
		return ""
	}
}

// ParseStep is the inverse of Step.String. Unknown names are rejected so
// that a corrupted snapshot cannot smuggle in an undefined phase.
func ParseStep(s string) (Step, error) {
	switch s {
	case "propose":
		return StepPropose, nil
	case "prevote":
		return StepPrevote, nil
	case "precommit":
		return StepPrecommit, nil
	case "commit":
		return StepCommit, nil
	default:
		return 0, fmt.Errorf("unknown step %q", s)
	}
}

// Block is the unit of consensus agreement.
type Block struct {
	Height   uint64
	PrevHash []byte
	Hash     []byte
	Payload  []byte
}

// Lock records a proposal the node is locked on, together with the round
// the lock was acquired in.
type Lock struct {
	Round uint64
	Block Block
}

// WalInfo is the engine state persisted through the Wal capability:
// current height, round and step, plus the locked proposal if one exists.
type WalInfo struct {
	Height uint64
	Round  uint64
	Step   Step
	Lock   *Lock
}
