// Package narrative is a rule-based post-pass that smooths fragmented
// slide-deck text into prose an LLM digests better: keyword runs, slide
// separators, formula lines, image placeholders, and trailing punctuation.
// It applies to PPTX output only and runs in linear time, no model involved.
package narrative

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// Runs of 2+ CJK tokens joined by slashes.
	cjkKeywordRe = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]{2,}(?:/[\x{4e00}-\x{9fa5}]{2,})+`)

	// Runs of 2+ ASCII word groups joined by spaced slashes. The spacing
	// requirement keeps paths and fractions like "a/b/c" untouched.
	asciiKeywordRe = regexp.MustCompile(`[a-zA-Z]+(?: [a-zA-Z]+)*(?:\s+/\s+[a-zA-Z]+(?: [a-zA-Z]+)*)+`)
	asciiSlashRe   = regexp.MustCompile(`\s+/\s+`)

	slideAtRe      = regexp.MustCompile(`(?i)@@@\s*Slide[_\s]+(\d+)\s*@@@`)
	slideEqRe      = regexp.MustCompile(`(?i)={3,}\s*Slide\s+(\d+)\s*={3,}`)
	slideDashRe    = regexp.MustCompile(`(?i)-{3,}\s*Slide\s+(\d+)\s*-{3,}`)
	slideBracketRe = regexp.MustCompile(`(?i)[\[(]\s*Slide\s+(\d+)\s*[\])]`)

	placeholderOCRRe   = regexp.MustCompile(`\[图像\s+(\d+)\s+OCR\s+内容\]\s*[:：]`)
	placeholderTextRe  = regexp.MustCompile(`(?i)Image\s+(\d+)\s+Text\s*:`)
	placeholderPlainRe = regexp.MustCompile(`(?i)\[Image\s+(\d+)\]\s*[:：]?`)
)

const (
	formulaPrefix = "公式："

	// Greek letters and operators that mark a formula line when paired
	// with '=' or each other.
	formulaCore = "αβγδεθλμσπ∑∏∫"

	cjkTerminators   = "。！？；，、：）】」"
	asciiTerminators = ".!?;:)]}"
)

// Optimize applies all rules once, in order. The order matters: the
// punctuation rule relies on the formula rule having already tagged
// formula lines. Optimize is idempotent.
func Optimize(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	text = optimizeKeywordSeparators(text)
	text = optimizeSlideSeparators(text)
	text = optimizeFormulaNotation(text)
	text = optimizeImagePlaceholders(text)
	text = optimizePunctuation(text)
	return text
}

// optimizeKeywordSeparators turns slash-joined keyword runs into natural
// enumerations: CJK runs get 、 separators, ASCII runs get commas, both
// get a 等内容 suffix.
func optimizeKeywordSeparators(text string) string {
	text = cjkKeywordRe.ReplaceAllStringFunc(text, func(m string) string {
		return strings.ReplaceAll(m, "/", "、") + "等内容"
	})
	text = asciiKeywordRe.ReplaceAllStringFunc(text, func(m string) string {
		return asciiSlashRe.ReplaceAllString(m, ", ") + " 等内容"
	})
	return text
}

// optimizeSlideSeparators normalizes separator variants to "## Slide N".
func optimizeSlideSeparators(text string) string {
	text = slideAtRe.ReplaceAllString(text, "## Slide $1")
	text = slideEqRe.ReplaceAllString(text, "## Slide $1")
	text = slideDashRe.ReplaceAllString(text, "## Slide $1")
	text = slideBracketRe.ReplaceAllString(text, "## Slide $1")
	return text
}

// optimizeFormulaNotation prepends 公式： to lines that look like math.
func optimizeFormulaNotation(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		stripped := strings.TrimSpace(line)

		if strings.HasPrefix(stripped, formulaPrefix) {
			continue
		}
		if strings.HasPrefix(stripped, "#") ||
			strings.HasPrefix(stripped, "-") ||
			strings.HasPrefix(stripped, "*") {
			continue
		}

		hasFormula := strings.Contains(stripped, "=") || strings.ContainsAny(stripped, formulaCore)
		if !hasFormula || utf8.RuneCountInString(stripped) <= 3 {
			continue
		}

		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		lines[i] = indent + formulaPrefix + stripped
	}
	return strings.Join(lines, "\n")
}

// optimizeImagePlaceholders rewrites technical placeholder headers into
// the reader-facing form.
func optimizeImagePlaceholders(text string) string {
	text = placeholderOCRRe.ReplaceAllString(text, "[图片 $1 内容]：")
	text = placeholderTextRe.ReplaceAllString(text, "[图片 $1 内容]：")
	text = placeholderPlainRe.ReplaceAllString(text, "[图片 $1]：")
	return text
}

// optimizePunctuation appends terminal punctuation to bare lines: 。 for
// CJK content longer than 5 runes, '.' for ASCII content longer than 10.
// Headers, list items, table rows, and formula lines are left alone.
func optimizePunctuation(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		stripped := strings.TrimSpace(line)

		if stripped == "" ||
			strings.HasPrefix(stripped, "#") ||
			strings.HasPrefix(stripped, "-") ||
			strings.HasPrefix(stripped, "*") {
			continue
		}

		last, _ := utf8.DecodeLastRuneInString(stripped)
		if strings.ContainsRune(cjkTerminators, last) || strings.ContainsRune(asciiTerminators, last) {
			continue
		}
		if strings.Count(stripped, "|") >= 2 {
			continue
		}
		if strings.Contains(stripped, "=") || strings.Contains(stripped, formulaPrefix) {
			continue
		}

		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		n := utf8.RuneCountInString(stripped)
		switch {
		case containsCJK(stripped) && n > 5:
			lines[i] = indent + stripped + "。"
		case !containsCJK(stripped) && n > 10:
			lines[i] = indent + stripped + "."
		}
	}
	return strings.Join(lines, "\n")
}

func containsCJK(s string) bool {
	for _, r := range s {
		if r >= 0x4e00 && r <= 0x9fa5 {
			return true
		}
	}
	return false
}
