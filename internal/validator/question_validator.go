package validator

import (
	"encoding/json"
	"fmt"

	"github.com/SAP-F-2025/olympiad-service/internal/models"
)

const (
	minMatchingItems = 2
	maxMatchingItems = 10
)

// QuestionValidator handles question-specific validation
type QuestionValidator struct{}

// NewQuestionValidator creates a new question validator
func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidateQuestion validates a complete question object
func (v *QuestionValidator) ValidateQuestion(question *models.Question) error {
	var errs ValidationErrors

	if question.Text == "" {
		errs.Add("text", "is required", nil)
	}
	if question.Points < 1 || question.Points > 100 {
		errs.Add("points", "must be between 1 and 100", question.Points)
	}
	if len(errs) > 0 {
		return errs
	}

	switch question.Type {
	case models.Matching:
		var content models.MatchingContent
		if err := json.Unmarshal(question.Content, &content); err != nil {
			return ValidationErrors{{Field: "content", Message: fmt.Sprintf("invalid matching content: %v", err)}}
		}
		return v.ValidateMatchingContent(&content)
	case "":
		return ValidationErrors{{Field: "type", Message: "is required"}}
	default:
		return ValidationErrors{{Field: "type", Message: "unsupported question type", Value: question.Type}}
	}
}

// ValidateMatchingContent checks that the content describes a gradable pairing:
// every left item has exactly one correct right item and all references resolve.
func (v *QuestionValidator) ValidateMatchingContent(content *models.MatchingContent) error {
	var errs ValidationErrors

	if len(content.LeftItems) < minMatchingItems {
		errs.Add("left_items", fmt.Sprintf("must have at least %d items", minMatchingItems), len(content.LeftItems))
	}
	if len(content.RightItems) < minMatchingItems {
		errs.Add("right_items", fmt.Sprintf("must have at least %d items", minMatchingItems), len(content.RightItems))
	}
	if len(content.LeftItems) > maxMatchingItems {
		errs.Add("left_items", fmt.Sprintf("cannot have more than %d items", maxMatchingItems), len(content.LeftItems))
	}
	if len(content.RightItems) > maxMatchingItems {
		errs.Add("right_items", fmt.Sprintf("cannot have more than %d items", maxMatchingItems), len(content.RightItems))
	}

	leftIDs := make(map[string]bool, len(content.LeftItems))
	for i, item := range content.LeftItems {
		field := fmt.Sprintf("left_items[%d]", i)
		if item.ID == "" || item.Text == "" {
			errs.Add(field, "must have both id and text", item.ID)
			continue
		}
		if leftIDs[item.ID] {
			errs.Add(field, "duplicate id", item.ID)
			continue
		}
		leftIDs[item.ID] = true
	}

	rightIDs := make(map[string]bool, len(content.RightItems))
	for i, item := range content.RightItems {
		field := fmt.Sprintf("right_items[%d]", i)
		if item.ID == "" || item.Text == "" {
			errs.Add(field, "must have both id and text", item.ID)
			continue
		}
		if rightIDs[item.ID] {
			errs.Add(field, "duplicate id", item.ID)
			continue
		}
		rightIDs[item.ID] = true
	}

	pairedLeft := make(map[string]bool, len(content.CorrectPairs))
	usedRight := make(map[string]bool, len(content.CorrectPairs))
	for i, pair := range content.CorrectPairs {
		field := fmt.Sprintf("correct_pairs[%d]", i)
		if !leftIDs[pair.LeftID] {
			errs.Add(field, "references non-existent left item", pair.LeftID)
			continue
		}
		if !rightIDs[pair.RightID] {
			errs.Add(field, "references non-existent right item", pair.RightID)
			continue
		}
		if pairedLeft[pair.LeftID] {
			errs.Add(field, "left item already has a correct pair", pair.LeftID)
			continue
		}
		if usedRight[pair.RightID] && !content.AllowRightReuse {
			errs.Add(field, "right item is already used and reuse is not allowed", pair.RightID)
			continue
		}
		pairedLeft[pair.LeftID] = true
		usedRight[pair.RightID] = true
	}

	for _, item := range content.LeftItems {
		if item.ID != "" && leftIDs[item.ID] && !pairedLeft[item.ID] {
			errs.Add("correct_pairs", "every left item needs a correct pair", item.ID)
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
