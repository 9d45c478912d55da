package ark

import (
	"context"
	"fmt"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"

	"vidgenai/internal/config"
)

const (
	defaultBaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	defaultModel   = "doubao-seed-1-6-flash-250615"
)

// Client 火山 Ark（豆包大模型）ChatCompletion 客户端封装
type Client struct {
	client *arkruntime.Client
	model  string
}

// NewClient 创建 Ark 客户端
func NewClient(cfg *config.AIConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Ark API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModel
	}

	return &Client{
		client: arkruntime.NewClientWithApiKey(cfg.APIKey, arkruntime.WithBaseUrl(baseURL)),
		model:  modelName,
	}, nil
}

// Message 对话消息
type Message struct {
	Role    string // system / user / assistant
	Content string
}

// ChatCompletionRequest 对话补全请求
type ChatCompletionRequest struct {
	Messages    []Message
	MaxTokens   *int
	Temperature *float64
}

// ChatCompletionResponse 对话补全响应
type ChatCompletionResponse struct {
	ID      string
	Choices []Choice
}

// Choice 模型生成的一个候选
type Choice struct {
	Index        int
	Message      Message
	FinishReason string
}

// CreateChatCompletion 调用 Ark 对话补全
func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	input := &model.ChatCompletionRequest{
		Model:    c.model,
		Messages: toSDKMessages(req.Messages),
	}
	if req.MaxTokens != nil {
		input.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		input.Temperature = float32(*req.Temperature)
	}

	output, err := c.client.CreateChatCompletion(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("Ark API call failed: %w", err)
	}
	return fromSDKResponse(&output), nil
}

func toSDKMessages(messages []Message) []*model.ChatCompletionMessage {
	result := make([]*model.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		content := msg.Content
		result[i] = &model.ChatCompletionMessage{
			Role:    msg.Role,
			Content: &model.ChatCompletionMessageContent{StringValue: &content},
		}
	}
	return result
}

func fromSDKResponse(output *model.ChatCompletionResponse) *ChatCompletionResponse {
	resp := &ChatCompletionResponse{
		ID:      output.ID,
		Choices: make([]Choice, len(output.Choices)),
	}
	for i, choice := range output.Choices {
		var content string
		if choice.Message.Content != nil && choice.Message.Content.StringValue != nil {
			content = *choice.Message.Content.StringValue
		}
		resp.Choices[i] = Choice{
			Index: choice.Index,
			Message: Message{
				Role:    choice.Message.Role,
				Content: content,
			},
			FinishReason: string(choice.FinishReason),
		}
	}
	return resp
}
