package study

import (
	"errors"
	"fmt"
	"strings"
)

// Phase is the top-level state of a study session.
type Phase int

const (
	// Active accepts verdicts for the current card.
	Active Phase = iota
	// GeneratingRemediation is entered while explanatory cards are requested.
	GeneratingRemediation
	// Complete is terminal until Restart.
	Complete
)

func (p Phase) String() string {
	switch p {
	case Active:
		return "active"
	case GeneratingRemediation:
		return "generating_remediation"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for _, candidate := range []Phase{Active, GeneratingRemediation, Complete} {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("study: unknown phase %q", text)
}

// Verdict is the learner's classification of a card.
type Verdict int

const (
	Understood Verdict = iota + 1
	NeedsReview
)

var ErrInvalidVerdict = errors.New("study: invalid verdict")

func (v Verdict) String() string {
	switch v {
	case Understood:
		return "understood"
	case NeedsReview:
		return "needs_review"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// ParseVerdict accepts "understood" and "needs_review".
func ParseVerdict(s string) (Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "understood":
		return Understood, nil
	case "needs_review":
		return NeedsReview, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidVerdict, s)
	}
}

func (v Verdict) MarshalText() ([]byte, error) {
	if v != Understood && v != NeedsReview {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVerdict, int(v))
	}
	return []byte(v.String()), nil
}

func (v *Verdict) UnmarshalText(text []byte) error {
	parsed, err := ParseVerdict(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
