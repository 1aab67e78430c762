// Package classify maps an utterance onto an intent with a fixed-per-path
// confidence.
package classify

import (
	"strings"
	"unicode/utf8"

	"realestate-assistant/internal/assistant/extract"
	"realestate-assistant/internal/models"
)

const (
	PatternConfidence   = 0.9
	HeuristicConfidence = 0.7
	FallbackConfidence  = 0.6
	BlankConfidence     = 0.5

	// Heuristic greetings only apply to short utterances.
	maxGreetingWords = 4
	maxGreetingRunes = 40
)

// Result is the outcome of classifying one utterance.
type Result struct {
	Intent     models.Intent
	Confidence float64
	Action     models.Action
	Entity     models.EntityKind
	// Rule is the index of the matching rule, or -1 for heuristic paths.
	Rule int
}

// Classifier evaluates an ordered rule table.
type Classifier struct {
	rules []Rule
}

// New returns a classifier over rules. The slice order is preserved.
func New(rules []Rule) *Classifier {
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return &Classifier{rules: cp}
}

// Default returns a classifier over DefaultRules.
func Default() *Classifier {
	return New(DefaultRules)
}

// Classify never fails: text that matches no rule falls back to the
// greeting heuristic or general_inquiry.
func (c *Classifier) Classify(text string) Result {
	trimmed := strings.TrimSpace(extract.NormalizeDigits(text))
	if trimmed == "" {
		return result(models.IntentGeneralInquiry, BlankConfidence, -1)
	}

	for i, rule := range c.rules {
		if rule.Pattern.MatchString(trimmed) {
			return result(rule.Intent, PatternConfidence, i)
		}
	}

	if isShort(trimmed) && looseGreetingTokens.MatchString(trimmed) {
		return result(models.IntentGreeting, HeuristicConfidence, -1)
	}
	return result(models.IntentGeneralInquiry, FallbackConfidence, -1)
}

// Analyze classifies text and attaches the extracted entities.
func (c *Classifier) Analyze(text string) models.Analysis {
	r := c.Classify(text)
	return models.Analysis{
		Intent:     r.Intent,
		Confidence: r.Confidence,
		Action:     r.Action,
		Entity:     r.Entity,
		Entities:   extract.Extract(text),
	}
}

func result(intent models.Intent, confidence float64, rule int) Result {
	action, entity := ActionEntity(intent)
	return Result{Intent: intent, Confidence: confidence, Action: action, Entity: entity, Rule: rule}
}

func isShort(text string) bool {
	return len(strings.Fields(text)) <= maxGreetingWords && utf8.RuneCountInString(text) <= maxGreetingRunes
}
