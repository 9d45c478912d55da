package ffmpeg

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEscapeFilterPath(t *testing.T) {
	Convey("escapeFilterPath 转义 filter 路径特殊字符", t, func() {
		So(escapeFilterPath("/tmp/plain.srt"), ShouldEqual, "/tmp/plain.srt")
		So(escapeFilterPath("/tmp/a:b.srt"), ShouldEqual, `/tmp/a\:b.srt`)
		So(escapeFilterPath("/tmp/it's.srt"), ShouldEqual, `/tmp/it\'s.srt`)
		So(escapeFilterPath(`/tmp/[1],x.srt`), ShouldEqual, `/tmp/\[1\]\,x.srt`)
	})
}

func TestMotionPresets(t *testing.T) {
	Convey("动态效果预设", t, func() {
		Convey("预设数量固定", func() {
			So(MotionPresetCount(), ShouldEqual, 5)
		})

		Convey("每个预设都是合法的 zoompan 模板", func() {
			for _, preset := range motionPresets {
				So(preset, ShouldStartWith, "zoompan=")
				So(preset, ShouldContainSubstring, "d=%[1]d")
				So(preset, ShouldContainSubstring, "s=%[2]dx%[3]d")
				So(preset, ShouldContainSubstring, "fps=%[5]d")
			}
		})
	})
}

func TestNewClient(t *testing.T) {
	Convey("NewClient 默认使用 PATH 中的可执行文件", t, func() {
		c := NewClient()
		So(c.ffmpegPath, ShouldNotBeEmpty)
		So(c.ffprobePath, ShouldNotBeEmpty)
	})
}
