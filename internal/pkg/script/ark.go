package script

import (
	"context"
	"fmt"
	"strings"

	"vidgenai/internal/config"
	"vidgenai/internal/model/video"
	"vidgenai/internal/pkg/ark"
	"vidgenai/internal/pkg/provider"
)

// ArkGenerator 基于火山 Ark 官方 SDK 的脚本生成器（备用提供方）
// 主提供方链路失败时回退到此
type ArkGenerator struct {
	cfg *config.AIConfig
}

// NewArkGenerator 创建 Ark 脚本生成器
func NewArkGenerator(apiKey, model string) *ArkGenerator {
	return &ArkGenerator{cfg: &config.AIConfig{
		Provider: "ark",
		APIKey:   apiKey,
		Model:    model,
	}}
}

// Name 返回提供方名称
func (g *ArkGenerator) Name() string {
	return "ark"
}

// Generate 调用 Ark ChatCompletion 生成脚本
func (g *ArkGenerator) Generate(ctx context.Context, req *Request) (*video.Script, error) {
	if g.cfg.APIKey == "" {
		return nil, provider.NewError(provider.ErrAuth, g.Name(), "generate_script",
			fmt.Errorf("Ark API key not configured"))
	}

	client, err := ark.NewClient(g.cfg)
	if err != nil {
		return nil, provider.NewError(provider.ErrAuth, g.Name(), "generate_script", err)
	}

	system, user := buildPrompt(req)
	temperature := 0.7
	resp, err := client.CreateChatCompletion(ctx, &ark.ChatCompletionRequest{
		Messages: []ark.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: &temperature,
	})
	if err != nil {
		return nil, classifyLLMError(g.Name(), err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, provider.NewError(provider.ErrInvalidResponse, g.Name(), "generate_script",
			fmt.Errorf("no choices in response"))
	}

	return parseScript(g.Name(), resp.Choices[0].Message.Content, req)
}
