package extract

import (
	"regexp"
	"strings"
)

// QualityMetrics is the multi-factor quality assessment ported from the
// original agent's ContentQualityScorer: readability, content length,
// vocabulary diversity, and sentence structure, combined into a weighted
// overall score.
type QualityMetrics struct {
	Overall     float64 `json:"overall"`
	Readability float64 `json:"readability"`
	Length      float64 `json:"length"`
	Vocabulary  float64 `json:"vocabulary"`
	Structure   float64 `json:"structure"`
}

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]+`)
	wordRe          = regexp.MustCompile(`\b\w+\b`)
)

// ScoreQuality computes QualityMetrics for text using the same weights as
// the original: readability 30%, length 20%, vocabulary 20%, structure
// 15%, plus a flat 15% base score. Text shorter than 50 characters
// (after trimming) scores zero across the board.
func ScoreQuality(text string) QualityMetrics {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 50 {
		return QualityMetrics{}
	}

	words := wordRe.FindAllString(strings.ToLower(text), -1)
	sentenceCount := len(sentenceSplitRe.Split(text, -1))

	readability := approximateReadability(len(words), sentenceCount)
	lengthScore := scoreLength(len(text))
	vocabScore := scoreVocabulary(words)
	structureScore := scoreStructure(len(words), sentenceCount)

	overall := readability*0.30 + lengthScore*0.20 + vocabScore*0.20 + structureScore*0.15 + 0.15

	return QualityMetrics{
		Overall:     round3(overall),
		Readability: round3(readability),
		Length:      round3(lengthScore),
		Vocabulary:  round3(vocabScore),
		Structure:   round3(structureScore),
	}
}

// approximateReadability stands in for textstat's Flesch reading-ease
// score, which has no direct Go equivalent in the pack: it scores average
// sentence length against a target of 15 words/sentence, same shape as
// the original's no-textstat fallback path.
func approximateReadability(wordCount, sentenceCount int) float64 {
	if sentenceCount == 0 {
		return 0
	}
	avgSentenceLength := float64(wordCount) / float64(sentenceCount)
	return clamp01(1 - absf(avgSentenceLength-15)/20)
}

func scoreLength(length int) float64 {
	if length <= 2000 {
		return clamp01(float64(length) / 2000)
	}
	return maxf(0.5, 2000/float64(length))
}

func scoreVocabulary(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	diversity := float64(len(unique)) / float64(len(words))
	return clamp01(diversity * 2)
}

func scoreStructure(wordCount, sentenceCount int) float64 {
	if sentenceCount == 0 {
		return maxf(0.3, 1-absf(0-15)/15)
	}
	avg := float64(wordCount) / float64(sentenceCount)
	if avg >= 10 && avg <= 20 {
		return 1.0
	}
	return maxf(0.3, 1-absf(avg-15)/15)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func round3(v float64) float64 {
	const scale = 1000.0
	if v < 0 {
		return -round3(-v)
	}
	return float64(int(v*scale+0.5)) / scale
}
