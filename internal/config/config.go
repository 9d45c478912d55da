package config

import (
	"errors"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	AI       AIConfig       `mapstructure:"ai"`
	Log      LogConfig      `mapstructure:"log"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Search   SearchConfig   `mapstructure:"search"`
	Speech   SpeechConfig   `mapstructure:"speech"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AIConfig 文案生成（LLM）配置
type AIConfig struct {
	Provider string          `mapstructure:"provider"` // openai, azure, ark
	APIKey   string          `mapstructure:"api_key"`
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Options  AIOptionsConfig `mapstructure:"options"`
	// ArkAPIKey 备用 Ark 提供者的密钥（主提供者失败时回退）
	ArkAPIKey string `mapstructure:"ark_api_key"`
	ArkModel  string `mapstructure:"ark_model"`
}

// AIOptionsConfig AI 模型参数
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type  string       `mapstructure:"type"` // local, oss, minio
	Local *LocalConfig `mapstructure:"local,omitempty"`
	OSS   *OSSConfig   `mapstructure:"oss,omitempty"`
	MinIO *MinIOConfig `mapstructure:"minio,omitempty"`
}

// LocalConfig 本地文件系统配置
type LocalConfig struct {
	BasePath      string `mapstructure:"base_path"`      // 基础路径
	BaseURL       string `mapstructure:"base_url"`       // 基础URL（用于生成访问URL）
	PresignExpiry int    `mapstructure:"presign_expiry"` // 预签名URL过期时间（秒）
}

// OSSConfig 阿里云OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`          // OSS端点
	Bucket          string `mapstructure:"bucket"`            // Bucket名称
	AccessKeyID     string `mapstructure:"access_key_id"`     // AccessKey ID
	AccessKeySecret string `mapstructure:"access_key_secret"` // AccessKey Secret
	PresignExpiry   int    `mapstructure:"presign_expiry"`    // 预签名URL过期时间（秒）
}

// MinIOConfig MinIO / S3 兼容存储配置
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`          // 端点（host:port）
	Bucket          string `mapstructure:"bucket"`            // Bucket名称
	AccessKeyID     string `mapstructure:"access_key_id"`     // AccessKey ID
	AccessKeySecret string `mapstructure:"access_key_secret"` // AccessKey Secret
	UseSSL          bool   `mapstructure:"use_ssl"`           // 是否使用HTTPS
	PresignExpiry   int    `mapstructure:"presign_expiry"`    // 预签名URL过期时间（秒）
}

// SearchConfig 图片搜索提供者配置
// Providers 为有序回退列表（serp, brave）
type SearchConfig struct {
	Providers []string `mapstructure:"providers"`
	Serp      struct {
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"serp"`
	Brave struct {
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"brave"`
}

// SpeechConfig 语音合成提供者配置
// Providers 为有序回退列表（elevenlabs, volc）
type SpeechConfig struct {
	Providers  []string `mapstructure:"providers"`
	ElevenLabs struct {
		APIKey  string `mapstructure:"api_key"`
		VoiceID string `mapstructure:"voice_id"`
		Model   string `mapstructure:"model"`
	} `mapstructure:"elevenlabs"`
	Volc struct {
		AccessToken string `mapstructure:"access_token"`
		AppID       string `mapstructure:"app_id"`
		VoiceType   string `mapstructure:"voice_type"`
		Cluster     string `mapstructure:"cluster"`
	} `mapstructure:"volc"`
}

// PipelineConfig 生成流水线配置
type PipelineConfig struct {
	Script   ScriptConfig   `mapstructure:"script"`
	Image    ImageConfig    `mapstructure:"image"`
	Subtitle SubtitleConfig `mapstructure:"subtitle"`
	Compose  ComposeConfig  `mapstructure:"compose"`
	Upload   UploadConfig   `mapstructure:"upload"`
}

// ScriptConfig 文案阶段配置
type ScriptConfig struct {
	MinScenes         int `mapstructure:"min_scenes"`          // 最少分镜数
	MaxScenes         int `mapstructure:"max_scenes"`          // 最多分镜数
	MinNarrationChars int `mapstructure:"min_narration_chars"` // 单分镜解说最少字符数
	MaxNarrationChars int `mapstructure:"max_narration_chars"` // 单分镜解说最多字符数
	TargetSeconds     int `mapstructure:"target_seconds"`      // 目标视频时长（秒）
}

// ImageConfig 图片阶段配置
type ImageConfig struct {
	Concurrency int `mapstructure:"concurrency"` // 分镜并发取图上限
	MinWidth    int `mapstructure:"min_width"`   // 候选图最小宽度
	MinHeight   int `mapstructure:"min_height"`  // 候选图最小高度
}

// SubtitleConfig 字幕阶段配置
type SubtitleConfig struct {
	MaxCueDuration float64 `mapstructure:"max_cue_duration"` // 单条字幕最大时长（秒）
	MaxCueChars    int     `mapstructure:"max_cue_chars"`    // 单条字幕最大字符数
}

// ComposeConfig 合成阶段配置
type ComposeConfig struct {
	Concurrency  int    `mapstructure:"concurrency"`   // 合成全局并发上限（跨Job）
	AspectRatio  string `mapstructure:"aspect_ratio"`  // 9:16, 16:9, 1:1
	FPS          int    `mapstructure:"fps"`           // 帧率
	VideoBitrate string `mapstructure:"video_bitrate"` // 视频码率，如 800k
	AudioBitrate string `mapstructure:"audio_bitrate"` // 音频码率，如 64k
}

// UploadConfig 上传阶段配置
type UploadConfig struct {
	Concurrency int `mapstructure:"concurrency"` // 并发上传数
	MaxRetries  int `mapstructure:"max_retries"` // 必选产物上传重试次数
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	if c.Pipeline.Script.MinScenes < 1 {
		return errors.New("pipeline.script.min_scenes must be >= 1")
	}
	if c.Pipeline.Script.MaxScenes < c.Pipeline.Script.MinScenes {
		return errors.New("pipeline.script.max_scenes must be >= min_scenes")
	}
	if c.Pipeline.Subtitle.MaxCueDuration <= 0 {
		return errors.New("pipeline.subtitle.max_cue_duration must be > 0")
	}
	if c.Pipeline.Subtitle.MaxCueChars <= 0 {
		return errors.New("pipeline.subtitle.max_cue_chars must be > 0")
	}

	return nil
}
