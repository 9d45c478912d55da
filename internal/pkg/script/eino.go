package script

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"vidgenai/internal/ai/component"
	"vidgenai/internal/config"
	"vidgenai/internal/model/video"
	"vidgenai/internal/pkg/provider"
)

// EinoGenerator 基于 Eino ChatModel 的脚本生成器（主提供方）
// 底层模型由配置决定: openai / azure / ark
type EinoGenerator struct {
	cfg *config.AIConfig
}

// NewEinoGenerator 创建 Eino 脚本生成器
func NewEinoGenerator(cfg *config.AIConfig) *EinoGenerator {
	return &EinoGenerator{cfg: cfg}
}

// Name 返回提供方名称
func (g *EinoGenerator) Name() string {
	if g.cfg.Provider != "" {
		return g.cfg.Provider
	}
	return "openai"
}

// Generate 调用 ChatModel 生成脚本
func (g *EinoGenerator) Generate(ctx context.Context, req *Request) (*video.Script, error) {
	if g.cfg.APIKey == "" {
		return nil, provider.NewError(provider.ErrAuth, g.Name(), "generate_script",
			fmt.Errorf("API key not configured"))
	}

	cm, err := component.NewChatModel(ctx, g.cfg)
	if err != nil {
		return nil, provider.NewError(provider.ErrUnavailable, g.Name(), "generate_script", err)
	}

	system, user := buildPrompt(req)
	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}

	resp, err := cm.Generate(ctx, messages)
	if err != nil {
		return nil, classifyLLMError(g.Name(), err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nil, provider.NewError(provider.ErrInvalidResponse, g.Name(), "generate_script",
			fmt.Errorf("empty model response"))
	}

	return parseScript(g.Name(), resp.Content, req)
}

// classifyLLMError 将底层模型错误映射为提供方错误分类
// SDK 不暴露统一的状态码，按错误文本做保守归类
func classifyLLMError(name string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota"):
		return provider.NewError(provider.ErrRateLimited, name, "generate_script", err)
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") || strings.Contains(msg, "api key") ||
		strings.Contains(msg, "authentication"):
		return provider.NewError(provider.ErrAuth, name, "generate_script", err)
	default:
		return provider.NewError(provider.ErrUnavailable, name, "generate_script", err)
	}
}
