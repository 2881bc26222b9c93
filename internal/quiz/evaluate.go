package quiz

import (
	"fmt"
)

// Outcome is the result of evaluating one submitted answer. When Decided
// is false the item awaits manual review: its answer row is persisted
// with NULL correctness and NULL points.
type Outcome struct {
	Decided bool
	Correct bool
	Points  float64
}

// Strategy decides correctness and awarded points for one question type.
type Strategy interface {
	Evaluate(q Question, key AnswerKey, r Response) (Outcome, error)
}

// Evaluator routes by question type to the matching Strategy.
type Evaluator struct {
	strategies map[QuestionType]Strategy
}

func NewEvaluator() *Evaluator {
	return &Evaluator{
		strategies: map[QuestionType]Strategy{
			SingleChoice:   singleChoiceStrategy{},
			TrueFalse:      singleChoiceStrategy{},
			MultipleChoice: multipleChoiceStrategy{},
			Number:         numberStrategy{},
			Matching:       matchingStrategy{},
			Text:           textStrategy{},
		},
	}
}

// Evaluate decodes q's answer key and applies the type's strategy.
func (e *Evaluator) Evaluate(q Question, r Response) (Outcome, error) {
	s, ok := e.strategies[q.Type]
	if !ok {
		return Outcome{}, fmt.Errorf("no strategy for question type %q", q.Type)
	}
	key, err := DecodeKey(q.Type, q.Correct)
	if err != nil {
		return Outcome{}, err
	}
	return s.Evaluate(q, key, r)
}

type singleChoiceStrategy struct{}

func (singleChoiceStrategy) Evaluate(q Question, key AnswerKey, r Response) (Outcome, error) {
	out := Outcome{Decided: true}
	if r.OptionID != "" && r.OptionID == key.OptionIDs[0] {
		out.Correct = true
		out.Points = float64(q.Points)
	}
	return out, nil
}

type multipleChoiceStrategy struct{}

// Full points only when the submitted set equals the correct set exactly.
// Partial overlap in either direction earns zero.
func (multipleChoiceStrategy) Evaluate(q Question, key AnswerKey, r Response) (Outcome, error) {
	out := Outcome{Decided: true}
	if len(r.OptionIDs) != len(key.OptionIDs) {
		return out, nil
	}
	correct := make(map[string]struct{}, len(key.OptionIDs))
	for _, id := range key.OptionIDs {
		correct[id] = struct{}{}
	}
	for _, id := range r.OptionIDs {
		if _, ok := correct[id]; !ok {
			return out, nil
		}
		delete(correct, id)
	}
	if len(correct) == 0 {
		out.Correct = true
		out.Points = float64(q.Points)
	}
	return out, nil
}

type numberStrategy struct{}

// Exact equality, no tolerance band.
func (numberStrategy) Evaluate(q Question, key AnswerKey, r Response) (Outcome, error) {
	out := Outcome{Decided: true}
	if r.Number != nil && *r.Number == key.Number {
		out.Correct = true
		out.Points = float64(q.Points)
	}
	return out, nil
}

type matchingStrategy struct{}

// Pairs are judged by matchingText, not by option id: the chosen right
// item must carry the same matchingText as the left item's own. Two left
// items sharing a label are therefore interchangeable; that is the
// observed behavior and is kept as-is.
func (matchingStrategy) Evaluate(q Question, key AnswerKey, r Response) (Outcome, error) {
	out := Outcome{Decided: true}
	byID := make(map[string]Option, len(q.Options))
	for _, opt := range q.Options {
		byID[opt.ID] = opt
	}
	for _, left := range q.Options {
		chosenID, ok := r.Pairs[left.ID]
		if !ok {
			return out, nil
		}
		chosen, ok := byID[chosenID]
		if !ok || chosen.MatchingText != left.MatchingText {
			return out, nil
		}
	}
	out.Correct = true
	out.Points = float64(q.Points)
	return out, nil
}

type textStrategy struct{}

// Free-text is never auto-decided; a human supplies the grade later.
func (textStrategy) Evaluate(Question, AnswerKey, Response) (Outcome, error) {
	return Outcome{Decided: false}, nil
}
