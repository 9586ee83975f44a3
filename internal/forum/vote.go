// AngelaMos | 2026
// vote.go

package forum

import (
	"fmt"
	"slices"
)

type Direction string

const (
	VoteUp   Direction = "upVote"
	VoteDown Direction = "downVote"
)

func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up", string(VoteUp):
		return VoteUp, nil
	case "down", string(VoteDown):
		return VoteDown, nil
	}
	return "", fmt.Errorf("vote direction %q: %w", s, ErrInvalidInput)
}

// ApplyVote removes the principal from the opposite set, then toggles
// membership in the requested one. Voting the same way twice clears the vote.
func ApplyVote(p *Post, principalID string, dir Direction) error {
	if principalID == "" {
		return ErrUnauthenticated
	}

	same, opposite := &p.Upvoters, &p.Downvoters
	switch dir {
	case VoteUp:
	case VoteDown:
		same, opposite = opposite, same
	default:
		return fmt.Errorf("vote direction %q: %w", dir, ErrInvalidInput)
	}

	*opposite = without(*opposite, principalID)

	if slices.Contains(*same, principalID) {
		*same = without(*same, principalID)
	} else {
		*same = append(*same, principalID)
	}

	return nil
}

// VoteOf reports the principal's current direction on p, or "" for none.
func VoteOf(p *Post, principalID string) Direction {
	switch {
	case slices.Contains(p.Upvoters, principalID):
		return VoteUp
	case slices.Contains(p.Downvoters, principalID):
		return VoteDown
	}
	return ""
}

func (p *Post) Score() int {
	return len(p.Upvoters) - len(p.Downvoters)
}

func without(set []string, id string) []string {
	out := set[:0:0]
	for _, v := range set {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
