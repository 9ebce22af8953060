// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

// Package threat implements the content threat filter: a pattern-based
// classifier flagging probable SQL-injection and XSS payloads in free-text
// input.
//
// This is a heuristic gate, not a sanitizer. Parameterized queries remain
// the injection defense in the data-access layer, and rich-content HTML
// sanitization is out of scope; the filter exists to flag obviously
// malicious plain-text fields before they reach business logic.
//
// Verdicts are consumed internally and never echoed back to the client, so
// error responses cannot be used to reflect attacker-controlled patterns.
package threat

import (
	"regexp"
)

// Policy selects what a call site does with a positive verdict.
// One policy per call site, applied uniformly: authentication-adjacent
// inputs block, content-moderation inputs flag and continue.
type Policy int

const (
	// PolicyBlock rejects input with a positive verdict (fail closed).
	PolicyBlock Policy = iota

	// PolicyFlag accepts the input but marks it for moderation review
	// (fail open with flag).
	PolicyFlag
)

// String returns the policy name for logging.
func (p Policy) String() string {
	switch p {
	case PolicyBlock:
		return "block"
	case PolicyFlag:
		return "flag"
	default:
		return "unknown"
	}
}

// Verdict is the transient classification of one input string.
type Verdict struct {
	// SQLSuspect is true when the input matches a SQL-injection pattern.
	SQLSuspect bool

	// XSSSuspect is true when the input matches an XSS pattern.
	XSSSuspect bool
}

// Suspect reports whether either heuristic fired.
func (v Verdict) Suspect() bool {
	return v.SQLSuspect || v.XSSSuspect
}

// SQL-injection patterns: bare SQL keywords as whole tokens,
// boolean-tautology shapes, and comment or statement-terminator sequences.
var sqlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(select|insert|update|delete|drop|create|alter|exec|union)\b`),
	regexp.MustCompile(`(?i)\b(or|and)\s+\d+\s*=\s*\d+`),
	regexp.MustCompile(`(?i)\b(or|and)\s+'[^']*'\s*=\s*'[^']*'`),
	regexp.MustCompile(`--`),
	regexp.MustCompile(`;`),
	regexp.MustCompile(`/\*.*\*/`),
}

// XSS patterns: script tags, javascript: URLs, inline event handlers, and
// dangerous embedded tags.
var xssPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
	regexp.MustCompile(`(?i)<(iframe|object|embed|form)\b`),
}

// Scan classifies one input string. Pure function: no state, no I/O.
func Scan(text string) Verdict {
	var verdict Verdict

	for _, pattern := range sqlPatterns {
		if pattern.MatchString(text) {
			verdict.SQLSuspect = true
			break
		}
	}

	for _, pattern := range xssPatterns {
		if pattern.MatchString(text) {
			verdict.XSSSuspect = true
			break
		}
	}

	return verdict
}

// Filter applies Scan according to a configured enablement flag. A disabled
// filter returns clean verdicts, keeping call sites branch-free.
type Filter struct {
	enabled bool
}

// NewFilter creates a filter.
func NewFilter(enabled bool) *Filter {
	return &Filter{enabled: enabled}
}

// Scan classifies text, or returns a clean verdict when disabled.
func (f *Filter) Scan(text string) Verdict {
	if !f.enabled {
		return Verdict{}
	}
	return Scan(text)
}
