package subtitle

import (
	"unicode/utf8"

	"vidgenai/internal/pkg/speech"
)

// Cue 一条字幕
type Cue struct {
	Index int     // 序号（从1开始）
	Start float64 // 开始时间（秒）
	End   float64 // 结束时间（秒）
	Text  string  // 字幕文本
}

// Options 字幕分组参数
type Options struct {
	MaxCueDuration float64 // 单条字幕最大时长（秒）
	MaxCueChars    int     // 单条字幕最大字符数
}

// BuildCues 基于词级时间戳构建字幕
// 词不跨条拆分；超过时长或字符上限时开新条；相邻条之间的静音间隙并入前一条
func BuildCues(timings []speech.Timing, audioDuration float64, opts Options) []Cue {
	if len(timings) == 0 {
		return nil
	}

	var cues []Cue
	var tokens []string
	var cueStart float64
	var cueEnd float64
	var cueChars int

	flush := func() {
		if len(tokens) == 0 {
			return
		}
		cues = append(cues, Cue{
			Index: len(cues) + 1,
			Start: cueStart,
			End:   cueEnd,
			Text:  joinTokens(tokens),
		})
		tokens = nil
		cueChars = 0
	}

	for _, t := range timings {
		chars := utf8.RuneCountInString(t.Text)
		if len(tokens) > 0 {
			exceedsChars := cueChars+chars+1 > opts.MaxCueChars
			exceedsDuration := t.End-cueStart > opts.MaxCueDuration
			if exceedsChars || exceedsDuration {
				flush()
			}
		}
		if len(tokens) == 0 {
			cueStart = t.Start
		}
		tokens = append(tokens, t.Text)
		cueChars += chars + 1
		cueEnd = t.End
	}
	flush()

	absorbGaps(cues, audioDuration)
	return cues
}

// EvenCues 无时间戳时的兜底：句子均匀铺满音频时长
// 各句时长按字符数占比分配，最后一句吸收舍入残差
func EvenCues(splitter *Splitter, text string, audioDuration float64, opts Options) []Cue {
	segments := splitForEven(splitter, text, opts.MaxCueChars)
	if len(segments) == 0 || audioDuration <= 0 {
		return nil
	}

	total := 0
	for _, seg := range segments {
		total += utf8.RuneCountInString(seg)
	}
	if total == 0 {
		return nil
	}

	var cues []Cue
	cursor := 0.0
	for i, seg := range segments {
		var end float64
		if i == len(segments)-1 {
			end = audioDuration
		} else {
			share := audioDuration * float64(utf8.RuneCountInString(seg)) / float64(total)
			end = cursor + share
		}
		cues = append(cues, Cue{
			Index: i + 1,
			Start: cursor,
			End:   end,
			Text:  seg,
		})
		cursor = end
	}
	return cues
}

// splitForEven 把文本切成不超过字符上限的展示段
func splitForEven(splitter *Splitter, text string, maxChars int) []string {
	var segments []string
	for _, sentence := range splitter.SplitSentences(text) {
		if utf8.RuneCountInString(sentence) <= maxChars {
			segments = append(segments, sentence)
			continue
		}
		// 长句按词单元继续切
		var tokens []string
		chars := 0
		for _, tok := range splitter.Tokenize(sentence) {
			n := utf8.RuneCountInString(tok)
			if len(tokens) > 0 && chars+n+1 > maxChars {
				segments = append(segments, joinTokens(tokens))
				tokens = nil
				chars = 0
			}
			tokens = append(tokens, tok)
			chars += n + 1
		}
		if len(tokens) > 0 {
			segments = append(segments, joinTokens(tokens))
		}
	}
	return segments
}

// absorbGaps 静音并入字幕条：开头静音归首条，条间静音归前一条，末条延伸到音频结束
// 处理后各条首尾相接，完整覆盖 [0, audioDuration]
func absorbGaps(cues []Cue, audioDuration float64) {
	if len(cues) > 0 && cues[0].Start > 0 {
		cues[0].Start = 0
	}
	for i := 0; i < len(cues)-1; i++ {
		if cues[i+1].Start > cues[i].End {
			cues[i].End = cues[i+1].Start
		}
	}
	if n := len(cues); n > 0 && audioDuration > cues[n-1].End {
		cues[n-1].End = audioDuration
	}
}
