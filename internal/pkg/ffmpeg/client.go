package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Client FFmpeg 客户端
// 用于封装 FFmpeg 命令调用
type Client struct {
	ffmpegPath  string // FFmpeg 可执行文件路径（默认: ffmpeg）
	ffprobePath string // FFprobe 可执行文件路径（默认: ffprobe）
}

// NewClient 创建 FFmpeg 客户端
func NewClient() *Client {
	ffmpegPath := os.Getenv("FFMPEG_PATH")
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	ffprobePath := os.Getenv("FFPROBE_PATH")
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	return &Client{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// VideoInfo 视频信息
type VideoInfo struct {
	Width    int     // 宽度
	Height   int     // 高度
	FPS      float64 // 帧率
	Duration float64 // 时长（秒）
}

// AudioInfo 音频信息
type AudioInfo struct {
	Duration float64 // 时长（秒）
}

// probeOutput ffprobe JSON 输出结构
type probeOutput struct {
	Streams []struct {
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// GetVideoInfo 获取视频信息
func (c *Client) GetVideoInfo(ctx context.Context, videoPath string) (*VideoInfo, error) {
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate",
		"-show_entries", "format=duration",
		"-of", "json",
		videoPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe probeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var info VideoInfo
	if len(probe.Streams) > 0 {
		s := probe.Streams[0]
		info.Width = s.Width
		info.Height = s.Height
		// r_frame_rate 格式: "30000/1001"
		if parts := strings.SplitN(s.RFrameRate, "/", 2); len(parts) == 2 {
			num, errN := strconv.ParseFloat(parts[0], 64)
			den, errD := strconv.ParseFloat(parts[1], 64)
			if errN == nil && errD == nil && den > 0 {
				info.FPS = num / den
			}
		}
	}
	if probe.Format.Duration != "" {
		if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}

	return &info, nil
}

// GetAudioInfo 获取音频信息
func (c *Client) GetAudioInfo(ctx context.Context, audioPath string) (*AudioInfo, error) {
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		audioPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe probeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var info AudioInfo
	if probe.Format.Duration != "" {
		if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}

	return &info, nil
}

// motionPresets Ken Burns 动态效果预设
// 按场景序号取模选择，同一脚本多次合成结果一致
var motionPresets = []string{
	// 缓慢放大（居中）
	"zoompan=z='min(1.0+on*%[4]f,1.25)':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%[1]d:s=%[2]dx%[3]d:fps=%[5]d",
	// 缓慢缩小
	"zoompan=z='max(1.25-on*%[4]f,1.0)':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%[1]d:s=%[2]dx%[3]d:fps=%[5]d",
	// 放大 + 向左平移
	"zoompan=z='min(1.0+on*%[4]f,1.25)':x='(iw-iw/zoom)*on/%[1]d':y='ih/2-(ih/zoom/2)':d=%[1]d:s=%[2]dx%[3]d:fps=%[5]d",
	// 放大 + 向右平移
	"zoompan=z='min(1.0+on*%[4]f,1.25)':x='(iw-iw/zoom)*(1-on/%[1]d)':y='ih/2-(ih/zoom/2)':d=%[1]d:s=%[2]dx%[3]d:fps=%[5]d",
	// 放大 + 向下平移
	"zoompan=z='min(1.0+on*%[4]f,1.25)':x='iw/2-(iw/zoom/2)':y='(ih-ih/zoom)*on/%[1]d':d=%[1]d:s=%[2]dx%[3]d:fps=%[5]d",
}

// MotionPresetCount 动态效果预设数量
func MotionPresetCount() int {
	return len(motionPresets)
}

// CreateImageVideo 从单张图片生成带动态效果的无声视频片段
// presetIndex 决定使用哪种 Ken Burns 效果（内部取模，调用方传场景序号即可）
func (c *Client) CreateImageVideo(ctx context.Context, imagePath, outputPath string, duration float64, width, height, fps, presetIndex int) error {
	if duration <= 0 {
		return fmt.Errorf("invalid clip duration: %f", duration)
	}
	totalFrames := int(duration * float64(fps))
	if totalFrames < 1 {
		totalFrames = 1
	}

	// 每帧缩放步长，保证约20秒内完成最大缩放
	zoomStep := 0.25 / float64(fps*20)
	preset := motionPresets[presetIndex%len(motionPresets)]
	motion := fmt.Sprintf(preset, totalFrames, width, height, zoomStep, fps)

	// 先放大裁剪到目标尺寸的2倍再做 zoompan，避免抖动
	vf := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,%s,setsar=1",
		width*2, height*2, width*2, height*2, motion)

	args := []string{
		"-y",
		"-loop", "1",
		"-i", imagePath,
		"-t", fmt.Sprintf("%.3f", duration),
		"-vf", vf,
		"-c:v", "libx264",
		"-preset", "medium",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(fps),
		"-an",
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("create image video: %w", err)
	}

	log.Debug().
		Str("image", imagePath).
		Str("output", outputPath).
		Float64("duration", duration).
		Int("preset", presetIndex%len(motionPresets)).
		Msg("场景片段生成成功")

	return nil
}

// ConcatVideos 用 concat demuxer 合并片段（流拷贝不重编码）
func (c *Client) ConcatVideos(ctx context.Context, videoPaths []string, outputPath string) error {
	if len(videoPaths) == 0 {
		return fmt.Errorf("no videos to concat")
	}

	tempDir := filepath.Dir(outputPath)
	concatListFile := filepath.Join(tempDir, fmt.Sprintf("concat_list_%d.txt", time.Now().UnixNano()))

	file, err := os.Create(concatListFile)
	if err != nil {
		return fmt.Errorf("create concat list file: %w", err)
	}
	defer os.Remove(concatListFile)

	for _, videoPath := range videoPaths {
		absPath, err := filepath.Abs(videoPath)
		if err != nil {
			file.Close()
			return fmt.Errorf("get absolute path: %w", err)
		}
		fmt.Fprintf(file, "file '%s'\n", absPath)
	}
	file.Close()

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", concatListFile,
		"-c", "copy",
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("concat videos: %w", err)
	}

	log.Debug().
		Int("count", len(videoPaths)).
		Str("output", outputPath).
		Msg("片段合并成功")

	return nil
}

// MuxAudio 将解说音轨合入视频
// 显式映射 0:v:0 和 1:a:0，防止片段内残留音轨被选中
func (c *Client) MuxAudio(ctx context.Context, videoPath, audioPath, outputPath, audioBitrate string) error {
	if audioBitrate == "" {
		audioBitrate = "64k"
	}

	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", audioBitrate,
		"-shortest",
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("mux audio: %w", err)
	}
	return nil
}

// BurnSubtitles 烧录字幕并做最终编码
func (c *Client) BurnSubtitles(ctx context.Context, videoPath, srtPath, outputPath, videoBitrate string) error {
	if videoBitrate == "" {
		videoBitrate = "800k"
	}

	vf := fmt.Sprintf("subtitles=%s", escapeFilterPath(srtPath))

	args := []string{
		"-y",
		"-i", videoPath,
		"-vf", vf,
		"-c:v", "libx264",
		"-preset", "medium",
		"-b:v", videoBitrate,
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		"-movflags", "+faststart",
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("burn subtitles: %w", err)
	}
	return nil
}

// ExtractThumbnail 抽取封面帧
func (c *Client) ExtractThumbnail(ctx context.Context, videoPath, outputPath string, atSeconds float64) error {
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", atSeconds),
		"-i", videoPath,
		"-vframes", "1",
		"-q:v", "2",
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("extract thumbnail: %w", err)
	}
	return nil
}

// run 执行 ffmpeg 命令，失败时带上 stderr 尾部便于定位
func (c *Client) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		tail := stderr.String()
		if len(tail) > 1024 {
			tail = tail[len(tail)-1024:]
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail)
	}
	return nil
}

// escapeFilterPath 转义 filter 参数中的路径特殊字符
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
		`[`, `\[`,
		`]`, `\]`,
		`,`, `\,`,
		`;`, `\;`,
	)
	return replacer.Replace(path)
}
