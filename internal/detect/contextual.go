package detect

import (
	"context"
	"regexp"

	"github.com/redactlabs/piiguard/internal/logger"
	"github.com/redactlabs/piiguard/internal/pipeline"
)

// contextualConfidence is reported for label-context hits. Slightly below
// the bare pattern confidence: the label names the field, but the captured
// value is less structurally constrained.
const contextualConfidence = 0.90

// contextRule captures a value that follows a field label ("PAN: ...",
// "email: ..."). Group 1 is the value span.
type contextRule struct {
	category string
	re       *regexp.Regexp
}

// ContextualDetector finds PII by the field labels that commonly precede
// it in forms and transcripts.
type ContextualDetector struct {
	rules  []contextRule
	logger *logger.Logger
}

// NewContextualDetector creates a contextual detector with the built-in
// label rules.
func NewContextualDetector(log *logger.Logger) *ContextualDetector {
	mk := func(category, label, value string) contextRule {
		return contextRule{
			category: category,
			re:       regexp.MustCompile(`(?i)(?:` + label + `)\s*:?\s*(` + value + `)`),
		}
	}

	return &ContextualDetector{
		logger: log,
		rules: []contextRule{
			mk("FULLNAME", `name`, `[A-Z][a-z]+ [A-Z][a-z]+`),
			mk("EMAIL", `e-?mail`, `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
			mk("TELEPHONENUM", `phone|mobile|contact`, `(?:\+91[- ]?|0)?[6-9][0-9]{9}`),
			mk("PAN", `pan(?: number)?`, `[A-Z]{3}[PFCHAT][A-Z][0-9]{4}[A-Z]`),
			mk("AADHAAR", `aadha?ar`, `[0-9]{4} [0-9]{4} [0-9]{4}`),
			mk("PASSPORTNUM", `passport(?: number)?`, `[A-Z][0-9]{7}`),
			mk("ACCOUNTNUM", `account(?: number)?|a/c`, `[0-9]{9,18}`),
			mk("IFSC", `ifsc(?: code)?`, `[A-Z]{4}0[A-Z0-9]{6}`),
			mk("CREDITCARDNUM", `credit card|card number`, `[0-9]{4} [0-9]{4} [0-9]{4} [0-9]{4}`),
			mk("TRANSACTIONID", `transaction(?: id)?|txn`, `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}`),
			mk("DATE", `date|dob|birth`, `[0-9]{2}[-/][0-9]{2}[-/][0-9]{4}`),
			mk("DRIVERLICENSENUM", `driver|licen[cs]e`, `[A-Z]{2}[- ]?[0-9]{2}[- ]?[0-9]{4}[- ]?[0-9]{7}`),
			mk("ZIPCODE", `pin ?code|zip`, `[0-9]{6}`),
			mk("AGE", `age`, `[0-9]{1,3}`),
			mk("GENDER", `gender|sex`, `M|F|Male|Female|MALE|FEMALE`),
			mk("CITY", `city`, `[A-Z][a-z]+(?: [A-Z][a-z]+)*`),
		},
	}
}

// Name implements Detector.
func (d *ContextualDetector) Name() string {
	return MethodContextual
}

// Detect implements Detector.
func (d *ContextualDetector) Detect(ctx context.Context, text string) ([]pipeline.Candidate, error) {
	var candidates []pipeline.Candidate

	for _, rule := range d.rules {
		for _, loc := range rule.re.FindAllStringSubmatchIndex(text, -1) {
			// loc[2], loc[3] bound capture group 1, the value span.
			if len(loc) < 4 || loc[2] < 0 {
				continue
			}
			candidates = append(candidates, pipeline.Candidate{
				Text:       text[loc[2]:loc[3]],
				Start:      loc[2],
				End:        loc[3],
				Category:   rule.category,
				Confidence: contextualConfidence,
				Method:     MethodContextual,
			})
		}
	}

	return candidates, nil
}
