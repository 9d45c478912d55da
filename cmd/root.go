package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vidgenai/internal/config"
	"vidgenai/internal/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vidgenai",
	Short: "VidGenAI - AI short-form video generation service",
	Long: `VidGenAI turns a short subject request into a finished reel:
script generation, image sourcing, narration synthesis, subtitles
and ffmpeg composition, uploaded to object storage.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./configs/config.yaml)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.vidgenai")
	}

	// 环境变量设置
	viper.SetEnvPrefix("VIDGENAI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 设置默认值
	setDefaults()

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fmt.Fprintln(os.Stderr, "No config file found, using defaults and environment variables")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
			os.Exit(1)
		}
	}

	// 反序列化到结构体
	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unmarshal config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	log.Debug().Str("config_file", viper.ConfigFileUsed()).Msg("configuration loaded")
}

func setDefaults() {
	// Server
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	// AI
	viper.SetDefault("ai.provider", "openai")
	viper.SetDefault("ai.model", "gpt-4")
	viper.SetDefault("ai.options.temperature", 0.7)
	viper.SetDefault("ai.options.max_tokens", 4096)
	viper.SetDefault("ai.options.top_p", 1.0)

	// Log
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.time_format", "RFC3339")

	// MongoDB
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "vidgenai")
	viper.SetDefault("mongo.max_pool_size", 100)
	viper.SetDefault("mongo.min_pool_size", 10)

	// Redis
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	// Storage
	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.local.base_path", "./data/storage")
	viper.SetDefault("storage.local.base_url", "http://localhost:8080/storage")
	viper.SetDefault("storage.local.presign_expiry", 3600)

	// Providers
	viper.SetDefault("search.providers", []string{"serp", "brave"})
	viper.SetDefault("speech.providers", []string{"elevenlabs", "volc"})

	// Pipeline
	viper.SetDefault("pipeline.script.min_scenes", 4)
	viper.SetDefault("pipeline.script.max_scenes", 12)
	viper.SetDefault("pipeline.script.min_narration_chars", 20)
	viper.SetDefault("pipeline.script.max_narration_chars", 280)
	viper.SetDefault("pipeline.script.target_seconds", 45)
	viper.SetDefault("pipeline.image.concurrency", 4)
	viper.SetDefault("pipeline.image.min_width", 400)
	viper.SetDefault("pipeline.image.min_height", 400)
	viper.SetDefault("pipeline.subtitle.max_cue_duration", 5.0)
	viper.SetDefault("pipeline.subtitle.max_cue_chars", 42)
	viper.SetDefault("pipeline.compose.concurrency", 2)
	viper.SetDefault("pipeline.compose.aspect_ratio", "9:16")
	viper.SetDefault("pipeline.compose.fps", 30)
	viper.SetDefault("pipeline.compose.video_bitrate", "800k")
	viper.SetDefault("pipeline.compose.audio_bitrate", "64k")
	viper.SetDefault("pipeline.upload.concurrency", 3)
	viper.SetDefault("pipeline.upload.max_retries", 3)
}

// GetConfig returns the global configuration
func GetConfig() *config.Config {
	return cfg
}
