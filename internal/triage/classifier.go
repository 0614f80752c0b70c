package triage

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var classifierTracer = otel.Tracer("kokoro/triage")

// Keywords holds the phrase tiers the lexical classifier matches against,
// from most to least severe. Tiers are configuration so clinical reviewers
// can extend them without code changes.
type Keywords struct {
	Critical []string
	Elevated []string
	Moderate []string
}

// DefaultKeywords returns the production phrase lists.
func DefaultKeywords() Keywords {
	return Keywords{
		Critical: []string{
			"suicide",
			"kill myself",
			"end my life",
			"hurt myself",
			"self-harm",
			"don't want to live",
			"want to die",
			"harm my baby",
			"hurt my baby",
		},
		Elevated: []string{
			"can't go on",
			"hopeless",
			"worthless",
			"no point",
			"everyone would be better",
			"can't do this anymore",
		},
		Moderate: []string{
			"so sad",
			"can't stop crying",
			"not eating",
			"not sleeping",
			"feel nothing",
			"empty",
			"alone",
			"failing as a mother",
		},
	}
}

// Classifier maps free text to a RiskLevel by priority-ordered keyword
// matching. Matching is deliberately not a score: one credible critical
// phrase must never be diluted by surrounding benign text.
type Classifier struct {
	keywords Keywords
	tracer   trace.Tracer
}

// NewClassifier creates a classifier with the given phrase tiers.
// Empty tiers fall back to the defaults.
func NewClassifier(kw Keywords) *Classifier {
	def := DefaultKeywords()
	if len(kw.Critical) == 0 {
		kw.Critical = def.Critical
	}
	if len(kw.Elevated) == 0 {
		kw.Elevated = def.Elevated
	}
	if len(kw.Moderate) == 0 {
		kw.Moderate = def.Moderate
	}
	return &Classifier{keywords: kw, tracer: classifierTracer}
}

// Classify returns the highest-severity tier with a matching phrase,
// or RiskNone when nothing matches. Pure; never errors.
func (c *Classifier) Classify(ctx context.Context, text string) RiskLevel {
	_, span := c.tracer.Start(ctx, "triage.classify")
	defer span.End()

	level := c.classify(text)
	span.SetAttributes(attribute.String("triage.risk_level", level.String()))
	return level
}

func (c *Classifier) classify(text string) RiskLevel {
	lower := strings.ToLower(text)
	if lower == "" {
		return RiskNone
	}
	if containsAny(lower, c.keywords.Critical) {
		return RiskCritical
	}
	if containsAny(lower, c.keywords.Elevated) {
		return RiskElevated
	}
	if containsAny(lower, c.keywords.Moderate) {
		return RiskModerate
	}
	return RiskNone
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
