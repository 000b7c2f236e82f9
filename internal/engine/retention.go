package engine

import "errors"

// ErrEmptyGroup rejects a retention decision on a group with no members.
var ErrEmptyGroup = errors.New("duplicate group has no members")

// Policy names a deterministic rule selecting the surviving record of a
// duplicate group.
type Policy string

const (
	// KeepFirst keeps the member at group position 0.
	KeepFirst Policy = "keep_first"
	// KeepNewest keeps the member with the maximum CreatedAt. This is a
	// timestamp comparison, never an assumption that the source fetches
	// newest-first; ties fall back to the earliest group position.
	KeepNewest Policy = "keep_newest"
	// KeepOldest keeps the member with the minimum CreatedAt, ties broken by
	// the earliest group position.
	KeepOldest Policy = "keep_oldest"
)

// DefaultPolicy matches the original tool's default strategy.
const DefaultPolicy = KeepNewest

// ParsePolicy validates a policy name, returning UnknownPolicyError for
// anything it does not recognize.
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(name); p {
	case KeepFirst, KeepNewest, KeepOldest:
		return p, nil
	default:
		return "", &UnknownPolicyError{Name: name}
	}
}

// Decide applies a retention policy to a duplicate group: exactly one member
// is kept, all others are marked for removal, in group order. Deterministic
// for a given group and policy.
func Decide(group DuplicateGroup, policy Policy) (RetentionDecision, error) {
	if _, err := ParsePolicy(string(policy)); err != nil {
		return RetentionDecision{}, err
	}
	if len(group.Members) == 0 {
		return RetentionDecision{}, ErrEmptyGroup
	}

	keep := 0
	switch policy {
	case KeepNewest:
		for i, m := range group.Members[1:] {
			if m.CreatedAt.After(group.Members[keep].CreatedAt) {
				keep = i + 1
			}
		}
	case KeepOldest:
		for i, m := range group.Members[1:] {
			if m.CreatedAt.Before(group.Members[keep].CreatedAt) {
				keep = i + 1
			}
		}
	}

	remove := make([]Record, 0, len(group.Members)-1)
	for i, m := range group.Members {
		if i != keep {
			remove = append(remove, m)
		}
	}
	return RetentionDecision{
		Policy: policy,
		Group:  group.Kind,
		Keep:   group.Members[keep],
		Remove: remove,
	}, nil
}
