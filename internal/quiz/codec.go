package quiz

import (
	"encoding/json"
	"fmt"
)

// The options and correct_answers columns are stored as type-erased JSON.
// The codec is the single place that knows the per-type shapes; everything
// else works with Option, AnswerKey and Response values.

// TrueFalseOptions is the fixed option pair every true/false question uses.
func TrueFalseOptions() []Option {
	return []Option{{ID: "0", Text: "True"}, {ID: "1", Text: "False"}}
}

// AnswerKey is the decoded correct-answer payload of a question.
type AnswerKey struct {
	OptionIDs []string // single_choice, multiple_choice, true_false, matching
	Text      string   // text: reference answer shown to the grader
	Number    float64  // number
}

// DecodeOptions parses a question's stored options payload. Text and
// number questions have none; true/false falls back to the fixed pair
// when the payload is empty.
func DecodeOptions(t QuestionType, raw json.RawMessage) ([]Option, error) {
	switch t {
	case Text, Number:
		return nil, nil
	}
	if len(raw) == 0 {
		if t == TrueFalse {
			return TrueFalseOptions(), nil
		}
		return nil, fmt.Errorf("question type %s requires options", t)
	}
	var opts []Option
	if err := json.Unmarshal(raw, &opts); err != nil {
		return nil, fmt.Errorf("options payload: %w", err)
	}
	return opts, nil
}

// EncodeOptions serializes an option list back to its stored form.
func EncodeOptions(opts []Option) (json.RawMessage, error) {
	if len(opts) == 0 {
		return nil, nil
	}
	return json.Marshal(opts)
}

// DecodeKey parses a question's stored correct_answers payload.
func DecodeKey(t QuestionType, raw json.RawMessage) (AnswerKey, error) {
	var key AnswerKey
	if len(raw) == 0 {
		return key, fmt.Errorf("question has no correct answer payload")
	}
	switch t {
	case SingleChoice, TrueFalse:
		if err := json.Unmarshal(raw, &key.OptionIDs); err != nil {
			return key, fmt.Errorf("correct answers: %w", err)
		}
		if len(key.OptionIDs) != 1 {
			return key, fmt.Errorf("%s expects exactly one correct option, got %d", t, len(key.OptionIDs))
		}
	case MultipleChoice, Matching:
		if err := json.Unmarshal(raw, &key.OptionIDs); err != nil {
			return key, fmt.Errorf("correct answers: %w", err)
		}
	case Text:
		var refs []string
		if err := json.Unmarshal(raw, &refs); err != nil {
			return key, fmt.Errorf("correct answers: %w", err)
		}
		if len(refs) > 0 {
			key.Text = refs[0]
		}
	case Number:
		var nums []float64
		if err := json.Unmarshal(raw, &nums); err != nil {
			return key, fmt.Errorf("correct answers: %w", err)
		}
		if len(nums) != 1 {
			return key, fmt.Errorf("number expects exactly one correct value, got %d", len(nums))
		}
		key.Number = nums[0]
	default:
		return key, fmt.Errorf("unknown question type %q", t)
	}
	return key, nil
}

// EncodeKey serializes an answer key to its stored form.
func EncodeKey(t QuestionType, key AnswerKey) (json.RawMessage, error) {
	switch t {
	case SingleChoice, TrueFalse, MultipleChoice, Matching:
		return json.Marshal(key.OptionIDs)
	case Text:
		return json.Marshal([]string{key.Text})
	case Number:
		return json.Marshal([]float64{key.Number})
	}
	return nil, fmt.Errorf("unknown question type %q", t)
}

// Response is a respondent's in-progress value for one question. Only the
// field matching the question's type is meaningful.
type Response struct {
	OptionID  string            `json:"option_id,omitempty"`  // single_choice, true_false
	OptionIDs []string          `json:"option_ids,omitempty"` // multiple_choice
	Text      string            `json:"text,omitempty"`       // text
	Number    *float64          `json:"number,omitempty"`     // number
	Pairs     map[string]string `json:"pairs,omitempty"`      // matching: left id -> chosen right id
}

// Complete reports whether r satisfies q's completeness rule: forward
// navigation stays disabled until it does.
func Complete(q Question, r Response) bool {
	switch q.Type {
	case SingleChoice, TrueFalse:
		return r.OptionID != ""
	case MultipleChoice:
		return len(r.OptionIDs) > 0
	case Text:
		return r.Text != ""
	case Number:
		return r.Number != nil
	case Matching:
		if len(r.Pairs) < len(q.Options) {
			return false
		}
		for _, opt := range q.Options {
			if r.Pairs[opt.ID] == "" {
				return false
			}
		}
		return true
	}
	return false
}

// EncodeResponse produces the persisted user_answer shape for one
// question, failing when required selections are missing.
func EncodeResponse(q Question, r Response) (json.RawMessage, error) {
	if !Complete(q, r) {
		return nil, fmt.Errorf("%w: incomplete answer for question %s", ErrValidation, q.ID)
	}
	switch q.Type {
	case SingleChoice, TrueFalse:
		return json.Marshal(r.OptionID)
	case MultipleChoice:
		return json.Marshal(r.OptionIDs)
	case Text:
		return json.Marshal(r.Text)
	case Number:
		return json.Marshal(*r.Number)
	case Matching:
		return json.Marshal(r.Pairs)
	}
	return nil, fmt.Errorf("unknown question type %q", q.Type)
}

// DecodeResponse parses a persisted user_answer back into a Response,
// used by the statistics and grading views.
func DecodeResponse(t QuestionType, raw json.RawMessage) (Response, error) {
	var r Response
	if len(raw) == 0 {
		return r, nil
	}
	switch t {
	case SingleChoice, TrueFalse:
		return r, json.Unmarshal(raw, &r.OptionID)
	case MultipleChoice:
		return r, json.Unmarshal(raw, &r.OptionIDs)
	case Text:
		return r, json.Unmarshal(raw, &r.Text)
	case Number:
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return r, err
		}
		r.Number = &n
		return r, nil
	case Matching:
		return r, json.Unmarshal(raw, &r.Pairs)
	}
	return r, fmt.Errorf("unknown question type %q", t)
}
