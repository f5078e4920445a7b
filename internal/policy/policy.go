// Package policy decides which flagged clauses may be rewritten automatically and screens
// generated rewrites before they replace the original text.
package policy

import (
	"strings"

	"ClauseScanner/internal/domain"
)

// rewriteAllowed lists procedural and ambiguity risks that may be rewritten for clarity.
var rewriteAllowed = map[string]struct{}{
	"Ambiguous Termination":      {},
	"One-Sided Termination":      {},
	"Unclear Survival Clause":    {},
	"Ambiguous Governing Law":    {},
	"Asymmetric Confidentiality": {},
	"Ambiguous Notice Period":    {},
	"Ambiguous Jurisdiction":     {},
}

// reviewOnly lists risks tied to liability, damages or indemnity exposure.
var reviewOnly = map[string]struct{}{
	"Uncapped Liability":         {},
	"Unlimited Liability":        {},
	"Unlimited Indemnity":        {},
	"Punitive Damages Exposure":  {},
	"Missing Liability Cap":      {},
	"No Limitation of Liability": {},
	"Broad Indemnification":      {},
	"Excessive Remedies":         {},
}

// forbiddenKeywords override the rewrite allow-list when found anywhere in the clause.
var forbiddenKeywords = []string{
	"liability",
	"damages",
	"indemnify",
	"indemnification",
	"hold harmless",
	"punitive",
	"consequential",
	"incidental",
	"special damages",
	"limitation of liability",
	"liability cap",
	"cap on liability",
	"$",
}

// Decide maps a matched risk category and its clause text to an action. Unknown categories
// and empty text are valid inputs and resolve to review only.
func Decide(category, clause string) domain.Action {
	category = strings.TrimSpace(category)

	if _, ok := reviewOnly[category]; ok {
		return domain.ActionReviewOnly
	}

	if containsAny(strings.ToLower(clause), forbiddenKeywords) {
		return domain.ActionReviewOnly
	}

	if _, ok := rewriteAllowed[category]; ok {
		return domain.ActionRewrite
	}

	return domain.ActionReviewOnly
}

// Class names the fixed set a category belongs to, ignoring clause text.
type Class string

const (
	ClassReviewOnly     Class = "review_only"
	ClassRewriteAllowed Class = "rewrite_allowed"
	ClassUnclassified   Class = "unclassified"
)

// Classify reports which fixed set a category belongs to.
func Classify(category string) Class {
	category = strings.TrimSpace(category)
	if _, ok := reviewOnly[category]; ok {
		return ClassReviewOnly
	}
	if _, ok := rewriteAllowed[category]; ok {
		return ClassRewriteAllowed
	}
	return ClassUnclassified
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
