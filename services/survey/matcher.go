// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package survey

import (
	"strings"
	"unicode"
)

// DefaultMatchThreshold is the minimum bigram similarity a fuzzy candidate
// must reach to be reported as a match.
const DefaultMatchThreshold = 0.75

// Resolve maps each free-text query to its best catalog match.
//
// Description:
//
//	Matching is tiered. Pass 1 walks the catalog once: exact equality of the
//	normalized texts wins immediately; substring containment (catalog text
//	contains the query) wins only while no exact match exists for that query.
//	Pass 2 scores every remaining query against every catalog entry with a
//	bigram-overlap similarity and keeps the highest-scoring candidate at or
//	above threshold. Exact strictly dominates substring, which strictly
//	dominates fuzzy, regardless of numeric score. Ties in fuzzy score keep
//	the first-encountered candidate, so catalog iteration order is stable.
//
//	Normalization lower-cases and strips all whitespace on both sides, so
//	"Web  Application" and "web application" are the same query.
//
// Inputs:
//   - queries: Free-text lookups. Duplicates are resolved independently.
//   - catalog: Answer records to match against, in stable order.
//   - threshold: Minimum fuzzy similarity in [0,1]. Use
//     DefaultMatchThreshold when unsure.
//
// Outputs:
//   - map[string]MatchResult: One entry per distinct query string. Queries
//     that match nothing get MatchType none and a nil MatchedAnswer.
//
// Resolve is a pure function over the provided catalog; catalog loading and
// caching belong to CatalogCache.
func Resolve(queries []string, catalog []LibraryAnswer, threshold float64) map[string]MatchResult {
	results := make(map[string]MatchResult, len(queries))
	if len(queries) == 0 {
		return results
	}

	normalized := make(map[string]string, len(queries))
	for _, q := range queries {
		normalized[q] = normalizeText(q)
	}

	// Pass 1: exact and substring matches in one catalog walk. A substring
	// hit is provisional until the walk completes; an exact hit is final.
	for i := range catalog {
		answer := &catalog[i]
		answerText := normalizeText(answer.Text)

		for _, query := range queries {
			if existing, ok := results[query]; ok && existing.MatchType == MatchExact {
				continue
			}
			qnorm := normalized[query]
			if qnorm == "" {
				continue
			}

			switch {
			case qnorm == answerText:
				results[query] = MatchResult{
					Query:         query,
					MatchedAnswer: answer,
					MatchType:     MatchExact,
					Similarity:    1.0,
				}
			case strings.Contains(answerText, qnorm):
				if _, ok := results[query]; !ok {
					results[query] = MatchResult{
						Query:         query,
						MatchedAnswer: answer,
						MatchType:     MatchSubstring,
						Similarity:    Similarity(qnorm, answerText),
					}
				}
			}
		}
	}

	// Pass 2: fuzzy matching for queries still unresolved. Strictly greater
	// comparison keeps the first-encountered candidate on score ties.
	for _, query := range queries {
		if _, ok := results[query]; ok {
			continue
		}
		qnorm := normalized[query]

		var best *LibraryAnswer
		bestScore := 0.0
		for i := range catalog {
			score := Similarity(qnorm, normalizeText(catalog[i].Text))
			if score >= threshold && score > bestScore {
				bestScore = score
				best = &catalog[i]
			}
		}

		if best != nil {
			results[query] = MatchResult{
				Query:         query,
				MatchedAnswer: best,
				MatchType:     MatchFuzzy,
				Similarity:    bestScore,
			}
		} else {
			results[query] = MatchResult{
				Query:      query,
				MatchType:  MatchNone,
				Similarity: 0,
			}
		}
	}

	return results
}

// Similarity computes the bigram-overlap similarity of two strings.
//
// The score is 2*shared / (len(a)-1 + len(b)-1), where shared counts
// overlapping 2-character windows common to both strings (multiset
// intersection, so repeated bigrams count once per occurrence). Identical
// strings score 1.0; strings shorter than two characters score 0 unless
// identical. The function is symmetric: Similarity(a, b) == Similarity(b, a).
func Similarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) < 2 || len(rb) < 2 {
		return 0
	}

	bigrams := make(map[string]int, len(ra)-1)
	for i := 0; i < len(ra)-1; i++ {
		bigrams[string(ra[i:i+2])]++
	}

	shared := 0
	for i := 0; i < len(rb)-1; i++ {
		bg := string(rb[i : i+2])
		if bigrams[bg] > 0 {
			bigrams[bg]--
			shared++
		}
	}

	return 2.0 * float64(shared) / float64(len(ra)-1+len(rb)-1)
}

// normalizeText lower-cases s and strips all whitespace, including interior
// runs, so matching is insensitive to spacing and case.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
