package script

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"vidgenai/internal/config"
	"vidgenai/internal/model/video"
	"vidgenai/internal/pkg/provider"
)

// Generator 脚本生成器接口
// 输入主题与语言，输出结构化分镜脚本
type Generator interface {
	Name() string
	Generate(ctx context.Context, req *Request) (*video.Script, error)
}

// Request 脚本生成请求
type Request struct {
	Topic         string // 视频主题
	Language      string // 解说语言
	MinScenes     int    // 最少分镜数
	MaxScenes     int    // 最多分镜数
	MaxChars      int    // 单分镜解说最大字符数
	TargetSeconds int    // 目标视频时长（秒）
	Strict        bool   // 上次输出越界后的收紧重试
}

// rawScript LLM 返回的脚本JSON结构
type rawScript struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Scenes      []struct {
		Narration  string `json:"narration"`
		SearchTerm string `json:"search_term"`
	} `json:"scenes"`
}

// buildPrompt 构造脚本生成提示词
func buildPrompt(req *Request) (system string, user string) {
	system = fmt.Sprintf(`You are a short-form video scriptwriter. `+
		`Produce a script as a single JSON object with this exact shape: `+
		`{"title": string, "description": string, "scenes": [{"narration": string, "search_term": string}]}. `+
		`Rules: between %d and %d scenes; each narration is %d characters or fewer, written in %s, `+
		`spoken-word style with no markdown, no emoji and no scene numbers; `+
		`each search_term is a short concrete English phrase (2-5 words) describing a photograph that matches the scene; `+
		`the full narration should read aloud in roughly %d seconds. `+
		`Return ONLY the JSON object, no code fences and no commentary.`,
		req.MinScenes, req.MaxScenes, req.MaxChars, req.Language, req.TargetSeconds)
	if req.Strict {
		system += fmt.Sprintf(` A previous attempt violated these limits. `+
			`This time obey them exactly: no fewer than %d and no more than %d scenes, `+
			`every narration strictly %d characters or fewer. Do not exceed any bound.`,
			req.MinScenes, req.MaxScenes, req.MaxChars)
	}
	user = fmt.Sprintf("Topic: %s", req.Topic)
	return system, user
}

// parseScript 解析并校验LLM返回的脚本
// 宽容处理围栏代码块与前后杂质，但结构不合法时返回 invalid_response
func parseScript(providerName, content string, req *Request) (*video.Script, error) {
	jsonText := extractJSON(content)
	if jsonText == "" {
		return nil, provider.NewError(provider.ErrInvalidResponse, providerName, "generate_script",
			fmt.Errorf("no JSON object in response"))
	}

	var raw rawScript
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		return nil, provider.NewError(provider.ErrInvalidResponse, providerName, "generate_script",
			fmt.Errorf("malformed script JSON: %w", err))
	}

	script := &video.Script{
		Title:       strings.TrimSpace(raw.Title),
		Description: strings.TrimSpace(raw.Description),
	}
	for _, s := range raw.Scenes {
		narration := strings.TrimSpace(s.Narration)
		if narration == "" {
			continue // 跳过空分镜
		}
		term := strings.TrimSpace(s.SearchTerm)
		if term == "" {
			term = DeriveSearchTerm(req.Topic, narration)
		}
		script.Scenes = append(script.Scenes, video.Scene{
			Index:      len(script.Scenes),
			Narration:  narration,
			SearchTerm: term,
		})
	}

	if err := validate(script, req); err != nil {
		return nil, provider.NewError(provider.ErrInvalidResponse, providerName, "generate_script", err)
	}
	return script, nil
}

// validate 校验脚本满足分镜数与文本长度约束
func validate(script *video.Script, req *Request) error {
	n := len(script.Scenes)
	if n < req.MinScenes || n > req.MaxScenes {
		return fmt.Errorf("scene count %d out of range [%d, %d]", n, req.MinScenes, req.MaxScenes)
	}
	if script.Title == "" {
		return fmt.Errorf("script title is empty")
	}
	for _, s := range script.Scenes {
		if utf8.RuneCountInString(s.Narration) > req.MaxChars*2 {
			// 超长一倍以上视为模型失控
			return fmt.Errorf("scene %d narration too long", s.Index)
		}
	}
	return nil
}

// extractJSON 从模型输出中提取首个完整的JSON对象
// 处理 ```json 围栏与前后说明文字
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}

	start := strings.Index(content, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}

// yearRx 解说中的年份，多半对应值得配图的节点
var yearRx = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// achievementKeywords 成就类关键词，命中时拼入检索词
var achievementKeywords = []string{"won", "champion", "record", "medal", "trophy", "award", "victory"}

// DeriveSearchTerm 从解说文本推导图片检索词
// 模型未给出 search_term 时的兜底：优先主题+年份/成就关键词，否则取文本前若干个词
func DeriveSearchTerm(topic, narration string) string {
	if topic != "" {
		if year := yearRx.FindString(narration); year != "" {
			return topic + " " + year
		}
		lower := strings.ToLower(narration)
		for _, kw := range achievementKeywords {
			if strings.Contains(lower, kw) {
				return topic + " " + kw
			}
		}
	}

	fields := strings.Fields(narration)
	if len(fields) == 0 {
		// CJK 文本无空格可分，截取前若干字符
		runes := []rune(narration)
		if len(runes) > 8 {
			runes = runes[:8]
		}
		return string(runes)
	}
	if len(fields) > 5 {
		fields = fields[:5]
	}
	return strings.Trim(strings.Join(fields, " "), ".,!?;:\"'")
}

// RequestFromConfig 根据配置构造脚本生成请求
func RequestFromConfig(topic, language string, cfg *config.ScriptConfig) *Request {
	return &Request{
		Topic:         topic,
		Language:      language,
		MinScenes:     cfg.MinScenes,
		MaxScenes:     cfg.MaxScenes,
		MaxChars:      cfg.MaxNarrationChars,
		TargetSeconds: cfg.TargetSeconds,
	}
}
