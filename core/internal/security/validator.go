// Package security implements the admission-control layer that runs before
// any SQL is issued: the query validator (size/depth/complexity), RBAC/RLS
// policy evaluation, and the TLS contract.
package security

import "github.com/fraiseql/fraiseql-sub006/core/internal/errs"

// ValidatorConfig bounds the three checks the validator performs on a raw
// document, before it is ever parsed into an AST.
type ValidatorConfig struct {
	MaxDepth      int
	MaxComplexity int
	MaxSizeBytes  int
}

// Permissive allows deep, large, complex documents: 20 levels, 5000
// complexity, 1 MB.
func Permissive() ValidatorConfig {
	return ValidatorConfig{MaxDepth: 20, MaxComplexity: 5000, MaxSizeBytes: 1_000_000}
}

// Standard is the default profile: 10 levels, 1000 complexity, 256 KB.
func Standard() ValidatorConfig {
	return ValidatorConfig{MaxDepth: 10, MaxComplexity: 1000, MaxSizeBytes: 256_000}
}

// Strict is for regulated environments: 5 levels, 500 complexity, 64 KB.
func Strict() ValidatorConfig {
	return ValidatorConfig{MaxDepth: 5, MaxComplexity: 500, MaxSizeBytes: 64_000}
}

// QueryMetrics is what the validator measured about a document.
type QueryMetrics struct {
	Depth       int
	Complexity  int
	SizeBytes   int
	FieldCount  int
}

// Validator runs the three ordered checks against a raw document string,
// before planning ever touches it.
type Validator struct {
	config ValidatorConfig
}

func NewValidator(cfg ValidatorConfig) *Validator {
	return &Validator{config: cfg}
}

// Validate performs, in order: size check, structural analysis, depth
// check, complexity check. Each failure returns a distinct error kind
// carrying the offending measurement.
func (v *Validator) Validate(query string) (QueryMetrics, error) {
	size := len(query)
	if size > v.config.MaxSizeBytes {
		return QueryMetrics{}, errs.QueryTooLarge(size, v.config.MaxSizeBytes)
	}

	depth, fieldCount := calculateDepthAndFields(query)
	complexity := depth * fieldCount

	metrics := QueryMetrics{Depth: depth, Complexity: complexity, SizeBytes: size, FieldCount: fieldCount}

	if depth > v.config.MaxDepth {
		return metrics, errs.QueryTooDeep(depth, v.config.MaxDepth)
	}
	if complexity > v.config.MaxComplexity {
		return metrics, errs.QueryTooComplex(complexity, v.config.MaxComplexity)
	}
	return metrics, nil
}

// calculateDepthAndFields scans raw query text for brace nesting and
// identifier characters, string-literal and backslash-escape aware. This
// mirrors the pre-parse heuristic the document lexer does not perform
// itself: admission control must reject oversize/overdeep documents before
// the (potentially expensive) real parse ever runs.
func calculateDepthAndFields(query string) (depth, fieldCount int) {
	maxDepth := 0
	currentDepth := 0
	inString := false
	escapeNext := false

	for _, c := range query {
		if escapeNext {
			escapeNext = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escapeNext = true
		case c == '"':
			inString = !inString
		case c == '{' && !inString:
			currentDepth++
			if currentDepth > maxDepth {
				maxDepth = currentDepth
			}
		case c == '}' && !inString:
			if currentDepth > 0 {
				currentDepth--
			}
		case !inString && (isAlpha(c) || c == '_'):
			fieldCount++
		}
	}

	if maxDepth == 0 {
		maxDepth = 1
	}
	if fieldCount == 0 {
		fieldCount = 1
	}
	return maxDepth, fieldCount
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
