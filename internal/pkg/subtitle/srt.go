package subtitle

import (
	"fmt"
	"io"
	"math"
	"os"
)

// WriteSRT 以 SRT 格式输出字幕
func WriteSRT(w io.Writer, cues []Cue) error {
	for i, cue := range cues {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n",
			cue.Index, formatSRTTime(cue.Start), formatSRTTime(cue.End), cue.Text)
		if err != nil {
			return err
		}
	}
	return nil
}

// SaveSRT 写入 SRT 文件
func SaveSRT(path string, cues []Cue) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteSRT(f, cues)
}

// formatSRTTime 秒转 SRT 时间格式 HH:MM:SS,mmm
func formatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int(math.Round(seconds * 1000))
	millis := totalMillis % 1000
	totalSeconds := totalMillis / 1000
	secs := totalSeconds % 60
	mins := (totalSeconds / 60) % 60
	hours := totalSeconds / 3600
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, mins, secs, millis)
}
