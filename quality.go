package llmcontext

import (
	"regexp"
	"strings"
	"unicode"
)

// Patterns characteristic of OCR output: digit/letter confusions at word
// boundaries, a pipe glued to a letter, and runs of 4+ symbols that are not
// ordinary punctuation.
var (
	ocrConfusionRe = regexp.MustCompile(`\b(l1|1l|0O|O0)\b`)
	ocrPipeRe      = regexp.MustCompile(`\|[A-Za-z]`)
	ocrSymbolRunRe = regexp.MustCompile(`[^\w\s.,;:!?'"()\-]{4,}`)
)

// textMetrics holds the raw measurements AssessQuality classifies on.
type textMetrics struct {
	CharCount       int
	WordCount       int
	LineCount       int
	AvgWordLength   float64
	AvgCharsPerLine float64
	WhitespaceRatio float64
	ControlRatio    float64
	NonASCIIRatio   float64
	SingleCharRatio float64
	RepeatedRuns    int
	OCRPatternCount int
}

func measureText(text string) textMetrics {
	runes := []rune(text)
	m := textMetrics{CharCount: len(runes)}

	var whitespace, control, nonASCII int
	for _, r := range runes {
		switch {
		case unicode.IsSpace(r):
			whitespace++
		case r < 0x20 || r == 0x7f:
			control++
		}
		if r > 0x7f {
			nonASCII++
		}
	}

	words := strings.Fields(text)
	m.WordCount = len(words)
	var wordRunes, singleChar int
	for _, w := range words {
		n := len([]rune(w))
		wordRunes += n
		if n == 1 {
			switch strings.ToLower(w) {
			case "a", "i", "o":
			default:
				singleChar++
			}
		}
	}

	lines := strings.Split(text, "\n")
	m.LineCount = len(lines)

	if m.CharCount > 0 {
		m.WhitespaceRatio = float64(whitespace) / float64(m.CharCount)
		m.ControlRatio = float64(control) / float64(m.CharCount)
		m.NonASCIIRatio = float64(nonASCII) / float64(m.CharCount)
	}
	if m.WordCount > 0 {
		m.AvgWordLength = float64(wordRunes) / float64(m.WordCount)
		m.SingleCharRatio = float64(singleChar) / float64(m.WordCount)
	}
	if m.LineCount > 0 {
		m.AvgCharsPerLine = float64(m.CharCount) / float64(m.LineCount)
	}

	m.RepeatedRuns = countRepeatedRuns(runes, 4)
	m.OCRPatternCount = len(ocrConfusionRe.FindAllString(text, -1)) +
		len(ocrPipeRe.FindAllString(text, -1)) +
		len(ocrSymbolRunRe.FindAllString(text, -1))

	return m
}

// countRepeatedRuns counts maximal runs of the same character of at least
// minRun length.
func countRepeatedRuns(runes []rune, minRun int) int {
	count := 0
	runLen := 1
	for i := 1; i <= len(runes); i++ {
		if i < len(runes) && runes[i] == runes[i-1] {
			runLen++
			continue
		}
		if runLen >= minRun {
			count++
		}
		runLen = 1
	}
	return count
}

// AssessQuality classifies extracted text. The order of checks matters:
// severely garbled text must resolve to QualityLow before the softer
// QualityOCRLike label is considered, and OCR detection requires several
// corroborating signals so normal prose is not flagged.
func AssessQuality(text string) QualityHint {
	if strings.TrimSpace(text) == "" {
		return QualityLow
	}

	m := measureText(text)

	switch {
	case m.WhitespaceRatio > 0.7,
		m.ControlRatio > 0.05,
		m.NonASCIIRatio > 0.2,
		m.AvgWordLength < 2.5 && m.WordCount > 10,
		m.CharCount > 100 && m.WordCount < 5:
		return QualityLow
	}

	switch {
	case m.SingleCharRatio > 0.25 && m.WordCount > 20,
		m.OCRPatternCount > 10 && m.WordCount > 10,
		m.AvgWordLength < 2 && m.SingleCharRatio > 0.2 && m.OCRPatternCount > 5 && m.WordCount > 20:
		return QualityOCRLike
	}

	switch {
	case m.NonASCIIRatio > 0.05 && m.NonASCIIRatio <= 0.2,
		m.ControlRatio > 0.01 && m.ControlRatio <= 0.05,
		m.AvgCharsPerLine < 25 && m.LineCount > 20,
		m.RepeatedRuns > 5,
		m.OCRPatternCount > 5 && m.OCRPatternCount <= 10:
		return QualityMixed
	}

	return QualityGood
}
