package subtitle

import (
	"strings"
	"unicode"

	"github.com/go-ego/gse"
)

// Splitter 字幕文本分割器
// CJK 文本用 gse 按词边界切分，拉丁文本按空白切分
type Splitter struct {
	segmenter *gse.Segmenter
}

// NewSplitter 创建字幕文本分割器
func NewSplitter() *Splitter {
	seg, err := gse.New()
	if err != nil {
		// 初始化失败时降级到字符分割
		return &Splitter{}
	}
	return &Splitter{segmenter: &seg}
}

// Tokenize 将文本切分为词单元，作为字幕分组的最小单位
func (s *Splitter) Tokenize(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	// 含空白的文本按空白切分即可
	if strings.ContainsFunc(text, unicode.IsSpace) && !containsCJK(text) {
		return strings.Fields(text)
	}

	if containsCJK(text) {
		var words []string
		if s.segmenter != nil {
			for _, w := range s.segmenter.Cut(text, false) {
				w = strings.TrimSpace(w)
				if w != "" {
					words = append(words, w)
				}
			}
			return words
		}
		// 降级：按字符切分
		for _, char := range text {
			if !unicode.IsSpace(char) {
				words = append(words, string(char))
			}
		}
		return words
	}

	return strings.Fields(text)
}

// SplitSentences 按句末标点切分文本为句子
func (s *Splitter) SplitSentences(text string) []string {
	endings := []rune{'。', '！', '？', '；', '…', '.', '!', '?', ';'}
	var sentences []string
	var current strings.Builder

	for _, char := range text {
		current.WriteRune(char)
		if containsRune(endings, char) {
			if sent := strings.TrimSpace(current.String()); sent != "" {
				sentences = append(sentences, sent)
			}
			current.Reset()
		}
	}
	if sent := strings.TrimSpace(current.String()); sent != "" {
		sentences = append(sentences, sent)
	}
	return sentences
}

func containsRune(runes []rune, target rune) bool {
	for _, r := range runes {
		if r == target {
			return true
		}
	}
	return false
}

func containsCJK(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) ||
			unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}

// joinTokens 拼接词单元为字幕文本
// 拉丁词之间补空格，CJK 词直接连接
func joinTokens(tokens []string) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 && needsSpace(tokens[i-1], t) {
			b.WriteByte(' ')
		}
		b.WriteString(t)
	}
	return b.String()
}

func needsSpace(prev, next string) bool {
	return !endsWithCJK(prev) && !startsWithCJK(next)
}

func endsWithCJK(s string) bool {
	var last rune
	for _, r := range s {
		last = r
	}
	return isCJKRune(last)
}

func startsWithCJK(s string) bool {
	for _, r := range s {
		return isCJKRune(r)
	}
	return false
}

func isCJKRune(r rune) bool {
	return unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r) ||
		unicode.Is(unicode.Po, r) && r > 0x2E80
}
