// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package german gives quick heuristic feedback on simple German sentences.
//
// The checks are deliberately shallow: end punctuation, an initial capital,
// capitalization of a small noun lexicon, verb-second word order and
// definite article agreement for the same lexicon. Each finding costs 15
// points from a score of 100.
//
// GenerateTasks turns a sentence into simple exercises that reuse the same
// heuristics.
package german

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Nouns maps known nouns to their definite article.
var Nouns = map[string]string{
	"Haus":   "das",
	"Auto":   "das",
	"Mann":   "der",
	"Frau":   "die",
	"Tag":    "der",
	"Kind":   "das",
	"Tisch":  "der",
	"Stuhl":  "der",
	"Buch":   "das",
	"Freund": "der",
}

// nounOrder keeps lookups deterministic.
var nounOrder = []string{"Haus", "Auto", "Mann", "Frau", "Tag", "Kind", "Tisch", "Stuhl", "Buch", "Freund"}

// Verbs are conjugated forms the word order check recognizes.
var Verbs = map[string]bool{
	"ist": true, "hat": true, "geht": true, "kommt": true, "macht": true,
	"sehen": true, "sieht": true, "isst": true, "lernt": true, "arbeitet": true,
	"spielt": true, "sprechen": true, "spricht": true,
}

// Issue types.
const (
	IssuePunctuation        = "punctuation"
	IssueCapitalFirst       = "capitalization_first"
	IssueNounCapitalization = "noun_capitalization"
	IssueVerbPosition       = "verb_position"
	IssueArticleAgreement   = "article_agreement"
)

// PenaltyPerIssue is deducted from 100 for every issue.
const PenaltyPerIssue = 15

// VerbDetail locates a misplaced verb.
type VerbDetail struct {
	Verb       string `json:"verb"`
	FoundIndex int    `json:"found_index"`
	Suggestion string `json:"suggestion"`
}

// Issue is one finding.
type Issue struct {
	Type       string      `json:"type"`
	Message    string      `json:"message"`
	Word       string      `json:"word,omitempty"`
	Suggestion string      `json:"suggestion,omitempty"`
	Detail     *VerbDetail `json:"detail,omitempty"`
}

// Assessment is the result of Assess.
type Assessment struct {
	Original     string   `json:"original"`
	Level        string   `json:"level"`
	Score        int      `json:"score"`
	Errors       []Issue  `json:"errors"`
	Correction   string   `json:"correction"`
	Explanations []string `json:"explanations"`
}

func bare(w string) string {
	return strings.Trim(w, ".,!?")
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && unicode.IsUpper(r)
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Assess checks sentence. level is reported back unchanged; the heuristics
// do not vary by level.
func Assess(sentence, level string) Assessment {
	if level == "" {
		level = "A1"
	}
	original := strings.TrimSpace(sentence)
	words := strings.Fields(original)
	issues := []Issue{}

	if !strings.HasSuffix(original, ".") && !strings.HasSuffix(original, "!") && !strings.HasSuffix(original, "?") {
		issues = append(issues, Issue{Type: IssuePunctuation, Message: "Sentence should end with a punctuation mark (., !, ?)."})
	}
	if original != "" && !startsUpper(original) {
		issues = append(issues, Issue{Type: IssueCapitalFirst, Message: "Sentence should start with a capital letter."})
	}

	nounIssues := nounCapitalization(words)
	issues = append(issues, nounIssues...)

	if d := verbPosition(words); d != nil {
		issues = append(issues, Issue{
			Type:    IssueVerbPosition,
			Message: "In main clauses, the conjugated verb often appears in second position.",
			Detail:  d,
		})
	}
	issues = append(issues, articleAgreement(words)...)

	score := max(0, 100-len(issues)*PenaltyPerIssue)

	corrected := original
	for _, n := range nounIssues {
		corrected = strings.ReplaceAll(corrected, n.Word, n.Suggestion)
	}
	if !strings.HasSuffix(corrected, ".") && !strings.HasSuffix(corrected, "!") && !strings.HasSuffix(corrected, "?") {
		corrected += "."
	}
	if !startsUpper(corrected) {
		corrected = capitalizeFirst(corrected)
	}

	explanations := make([]string, len(issues))
	for i, is := range issues {
		explanations[i] = is.Message
	}

	return Assessment{
		Original:     original,
		Level:        level,
		Score:        score,
		Errors:       issues,
		Correction:   corrected,
		Explanations: explanations,
	}
}

func nounCapitalization(words []string) []Issue {
	var out []Issue
	for _, w := range words {
		b := bare(w)
		if b == "" {
			continue
		}
		for _, noun := range nounOrder {
			if strings.EqualFold(b, noun) && !startsUpper(b) {
				out = append(out, Issue{
					Type:       IssueNounCapitalization,
					Word:       b,
					Suggestion: noun,
					Message:    "German nouns must be capitalized (Nomen werden großgeschrieben).",
				})
			}
		}
	}
	return out
}

// verbPosition inspects only the first known verb.
func verbPosition(words []string) *VerbDetail {
	if len(words) < 2 {
		return nil
	}
	for i, w := range words {
		v := strings.ToLower(bare(w))
		if !Verbs[v] {
			continue
		}
		if i == 1 {
			return nil
		}
		return &VerbDetail{
			Verb:       v,
			FoundIndex: i,
			Suggestion: "Place the conjugated verb in second position in main clauses (Verb-Zweitstellung).",
		}
	}
	return nil
}

func articleAgreement(words []string) []Issue {
	var out []Issue
	for i := 0; i+1 < len(words); i++ {
		article := bare(words[i])
		next := bare(words[i+1])
		switch strings.ToLower(article) {
		case "der", "die", "das":
		default:
			continue
		}
		for _, noun := range nounOrder {
			want := Nouns[noun]
			if strings.EqualFold(next, noun) && strings.ToLower(article) != want {
				out = append(out, Issue{
					Type:       IssueArticleAgreement,
					Message:    fmt.Sprintf("Article '%s' may not agree with noun '%s'. Suggested: '%s %s'.", article, next, want, noun),
					Suggestion: want + " " + noun,
				})
			}
		}
	}
	return out
}
