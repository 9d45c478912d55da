package video

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Scene 脚本场景
// 一个场景对应一段解说文本和一条图片检索词
type Scene struct {
	Index      int     `bson:"index" json:"index"`                               // 场景序号（从0开始）
	Narration  string  `bson:"narration" json:"narration"`                       // 解说文本
	SearchTerm string  `bson:"search_term" json:"search_term"`                   // 图片检索词
	ImageURL   string  `bson:"image_url,omitempty" json:"image_url,omitempty"`   // 选中的图片URL
	ImagePath  string  `bson:"image_path,omitempty" json:"-"`                    // 本地图片路径（任务目录内）
	Duration   float64 `bson:"duration,omitempty" json:"duration,omitempty"`     // 分配的画面时长（秒）
	Fallback   bool    `bson:"fallback,omitempty" json:"fallback,omitempty"`     // 是否使用了兜底图片
}

// Script 生成的视频脚本
type Script struct {
	Title       string  `bson:"title" json:"title"`             // 视频标题
	Description string  `bson:"description" json:"description"` // 视频描述
	Scenes      []Scene `bson:"scenes" json:"scenes"`           // 场景列表
}

// AudioAsset 配音产物
type AudioAsset struct {
	Path     string  `bson:"path,omitempty" json:"-"`      // 本地音频路径
	Duration float64 `bson:"duration" json:"duration"`     // 音频时长（秒）
	Provider string  `bson:"provider" json:"provider"`     // 实际使用的TTS提供方
	Voice    string  `bson:"voice,omitempty" json:"voice"` // 音色
}

// Output 最终产物
type Output struct {
	VideoKey     string  `bson:"video_key,omitempty" json:"-"`                           // 视频对象存储key
	VideoURL     string  `bson:"video_url,omitempty" json:"video_url,omitempty"`         // 视频访问URL
	ThumbnailKey string  `bson:"thumbnail_key,omitempty" json:"-"`                       // 封面对象存储key
	ThumbnailURL string  `bson:"thumbnail_url,omitempty" json:"thumbnail_url,omitempty"` // 封面访问URL
	SubtitleKey  string  `bson:"subtitle_key,omitempty" json:"-"`                        // 字幕对象存储key
	SubtitleURL  string  `bson:"subtitle_url,omitempty" json:"subtitle_url,omitempty"`   // 字幕访问URL
	Duration     float64 `bson:"duration,omitempty" json:"duration,omitempty"`           // 最终视频时长（秒）
	Width        int     `bson:"width,omitempty" json:"width,omitempty"`                 // 成片宽度（像素）
	Height       int     `bson:"height,omitempty" json:"height,omitempty"`               // 成片高度（像素）
	SizeBytes    int64   `bson:"size_bytes,omitempty" json:"size_bytes,omitempty"`       // 成片文件大小（字节）
}

// Video 视频生成任务实体
// 记录从脚本到成片的完整流水线状态与产物
type Video struct {
	ID           string      `bson:"id" json:"id"`                                           // 任务ID（UUID）
	Topic        string      `bson:"topic" json:"topic"`                                     // 视频主题
	Language     string      `bson:"language" json:"language"`                               // 解说语言
	Voice        string      `bson:"voice,omitempty" json:"voice,omitempty"`                 // 指定音色（可选）
	AspectRatio  AspectRatio `bson:"aspect_ratio" json:"aspect_ratio"`                       // 画面比例
	Status       VideoStatus `bson:"status" json:"status"`                                   // 当前状态
	Progress     int         `bson:"progress" json:"progress"`                               // 进度 0-100
	Script       *Script     `bson:"script,omitempty" json:"script,omitempty"`               // 生成的脚本
	Audio        *AudioAsset `bson:"audio,omitempty" json:"audio,omitempty"`                 // 配音产物
	Output       *Output     `bson:"output,omitempty" json:"output,omitempty"`               // 最终产物
	Warnings     []string    `bson:"warnings,omitempty" json:"warnings,omitempty"`           // 非致命告警（如兜底图片）
	ErrorMessage string      `bson:"error_message,omitempty" json:"error_message,omitempty"` // 失败原因
	FailedStage  VideoStatus `bson:"failed_stage,omitempty" json:"failed_stage,omitempty"`   // 失败时所处阶段
	CreatedAt    time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `bson:"updated_at" json:"updated_at"`
	CompletedAt  *time.Time  `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// Collection 返回集合名称
func (v *Video) Collection() string {
	return "videos"
}

// EnsureIndexes 创建和维护索引
func (v *Video) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(v.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_status"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_created_at"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_status_created"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
