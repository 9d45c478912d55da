package video

// VideoStatus 视频生成任务状态
// 状态沿流水线阶段单向推进，failed 为终态
type VideoStatus string

const (
	VideoStatusPending             VideoStatus = "pending"              // 待处理
	VideoStatusGeneratingScript    VideoStatus = "generating_script"    // 生成脚本中
	VideoStatusFetchingImages      VideoStatus = "fetching_images"      // 拉取图片素材中
	VideoStatusGeneratingAudio     VideoStatus = "generating_audio"     // 生成配音中
	VideoStatusGeneratingSubtitles VideoStatus = "generating_subtitles" // 生成字幕中
	VideoStatusComposingVideo      VideoStatus = "composing_video"      // 合成视频中
	VideoStatusUploading           VideoStatus = "uploading"            // 上传中
	VideoStatusCompleted           VideoStatus = "completed"            // 已完成
	VideoStatusFailed              VideoStatus = "failed"               // 失败（终态）
)

// String 返回状态的字符串表示
func (s VideoStatus) String() string {
	return string(s)
}

// IsTerminal 是否为终态
func (s VideoStatus) IsTerminal() bool {
	return s == VideoStatusCompleted || s == VideoStatusFailed
}

// progressTable 各阶段进入时的进度基线
var progressTable = map[VideoStatus]int{
	VideoStatusPending:             0,
	VideoStatusGeneratingScript:    10,
	VideoStatusFetchingImages:      30,
	VideoStatusGeneratingAudio:     50,
	VideoStatusGeneratingSubtitles: 70,
	VideoStatusComposingVideo:      80,
	VideoStatusUploading:           90,
	VideoStatusCompleted:           100,
}

// ProgressForStatus 返回进入某状态时的进度基线
// failed 不改变进度，返回 -1 表示保持当前值
func ProgressForStatus(s VideoStatus) int {
	if p, ok := progressTable[s]; ok {
		return p
	}
	return -1
}

// stageOrder 阶段顺序，用于校验状态只能前进不能回退
var stageOrder = map[VideoStatus]int{
	VideoStatusPending:             0,
	VideoStatusGeneratingScript:    1,
	VideoStatusFetchingImages:      2,
	VideoStatusGeneratingAudio:     3,
	VideoStatusGeneratingSubtitles: 4,
	VideoStatusComposingVideo:      5,
	VideoStatusUploading:           6,
	VideoStatusCompleted:           7,
}

// CanTransitionTo 校验状态迁移是否合法
// 任意非终态都可以迁移到 failed；其余迁移必须严格按阶段顺序前进一步
func (s VideoStatus) CanTransitionTo(next VideoStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == VideoStatusFailed {
		return true
	}
	cur, ok := stageOrder[s]
	if !ok {
		return false
	}
	nxt, ok := stageOrder[next]
	if !ok {
		return false
	}
	return nxt == cur+1
}

// AspectRatio 画面比例
type AspectRatio string

const (
	AspectRatioPortrait  AspectRatio = "9:16" // 竖屏（默认）
	AspectRatioLandscape AspectRatio = "16:9" // 横屏
	AspectRatioSquare    AspectRatio = "1:1"  // 方形
)

// String 返回比例的字符串表示
func (a AspectRatio) String() string {
	return string(a)
}

// IsValid 检查比例是否受支持
func (a AspectRatio) IsValid() bool {
	switch a {
	case AspectRatioPortrait, AspectRatioLandscape, AspectRatioSquare:
		return true
	}
	return false
}

// Dimensions 返回比例对应的输出分辨率（宽、高）
func (a AspectRatio) Dimensions() (int, int) {
	switch a {
	case AspectRatioLandscape:
		return 854, 480
	case AspectRatioSquare:
		return 480, 480
	default:
		return 480, 854
	}
}
