package subtitle

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"vidgenai/internal/pkg/speech"
)

func TestBuildCues(t *testing.T) {
	Convey("BuildCues 按词级时间戳分组字幕", t, func() {
		opts := Options{MaxCueDuration: 5.0, MaxCueChars: 10}

		Convey("空时间戳应返回 nil", func() {
			So(BuildCues(nil, 10, opts), ShouldBeNil)
		})

		Convey("超过字符上限时开新条，词不跨条拆分", func() {
			timings := []speech.Timing{
				{Text: "Hello", Start: 0, End: 0.5},
				{Text: "brave", Start: 0.6, End: 1.0},
				{Text: "new", Start: 1.1, End: 1.4},
				{Text: "world", Start: 1.5, End: 2.0},
			}
			cues := BuildCues(timings, 2.5, opts)

			So(len(cues), ShouldEqual, 3)
			So(cues[0].Text, ShouldEqual, "Hello")
			So(cues[1].Text, ShouldEqual, "brave new")
			So(cues[2].Text, ShouldEqual, "world")

			Convey("条间静音并入前一条，末条延伸到音频结束", func() {
				So(cues[0].Start, ShouldAlmostEqual, 0)
				So(cues[0].End, ShouldAlmostEqual, 0.6)
				So(cues[1].End, ShouldAlmostEqual, 1.5)
				So(cues[2].End, ShouldAlmostEqual, 2.5)
			})

			Convey("序号从1开始连续", func() {
				for i, cue := range cues {
					So(cue.Index, ShouldEqual, i+1)
				}
			})
		})

		Convey("超过时长上限时开新条", func() {
			longOpts := Options{MaxCueDuration: 1.0, MaxCueChars: 100}
			timings := []speech.Timing{
				{Text: "a", Start: 0, End: 0.4},
				{Text: "b", Start: 0.5, End: 0.9},
				{Text: "c", Start: 1.2, End: 1.5},
			}
			cues := BuildCues(timings, 1.5, longOpts)

			So(len(cues), ShouldEqual, 2)
			So(cues[0].Text, ShouldEqual, "a b")
			So(cues[1].Text, ShouldEqual, "c")
			So(cues[0].End, ShouldAlmostEqual, 1.2)
			So(cues[1].End, ShouldAlmostEqual, 1.5)
		})

		Convey("开头静音并入首条，全程覆盖音频", func() {
			timings := []speech.Timing{
				{Text: "Hi", Start: 1.0, End: 1.4},
				{Text: "there", Start: 1.5, End: 2.0},
			}
			cues := BuildCues(timings, 3.0, opts)

			So(len(cues), ShouldEqual, 1)
			So(cues[0].Start, ShouldAlmostEqual, 0)
			So(cues[0].End, ShouldAlmostEqual, 3.0)
		})

		Convey("多条字幕首尾相接覆盖 [0, 音频时长]", func() {
			timings := []speech.Timing{
				{Text: "first", Start: 0.8, End: 1.2},
				{Text: "words", Start: 1.3, End: 1.8},
				{Text: "second", Start: 2.5, End: 3.0},
				{Text: "part", Start: 3.1, End: 3.6},
			}
			cues := BuildCues(timings, 4.5, opts)

			So(len(cues), ShouldBeGreaterThan, 1)
			So(cues[0].Start, ShouldAlmostEqual, 0)
			So(cues[len(cues)-1].End, ShouldAlmostEqual, 4.5)
			for i := 1; i < len(cues); i++ {
				So(cues[i].Start, ShouldAlmostEqual, cues[i-1].End)
			}
		})

		Convey("CJK 词直接连接不补空格", func() {
			timings := []speech.Timing{
				{Text: "今天", Start: 0, End: 0.4},
				{Text: "天气", Start: 0.4, End: 0.8},
			}
			cues := BuildCues(timings, 0.8, opts)
			So(len(cues), ShouldEqual, 1)
			So(cues[0].Text, ShouldEqual, "今天天气")
		})
	})
}

func TestEvenCues(t *testing.T) {
	Convey("EvenCues 无时间戳时按句子均匀分布", t, func() {
		splitter := NewSplitter()
		opts := Options{MaxCueDuration: 5.0, MaxCueChars: 42}

		Convey("空文本应返回 nil", func() {
			So(EvenCues(splitter, "", 10, opts), ShouldBeNil)
		})

		Convey("音频时长非法应返回 nil", func() {
			So(EvenCues(splitter, "Hello world.", 0, opts), ShouldBeNil)
		})

		Convey("按句子切分并按字符占比分配时长", func() {
			cues := EvenCues(splitter, "Hello world. Goodbye cruel world.", 10, opts)

			So(len(cues), ShouldEqual, 2)
			So(cues[0].Text, ShouldEqual, "Hello world.")
			So(cues[1].Text, ShouldEqual, "Goodbye cruel world.")

			Convey("首条从0开始，末条结束于音频时长", func() {
				So(cues[0].Start, ShouldAlmostEqual, 0)
				So(cues[len(cues)-1].End, ShouldAlmostEqual, 10)
			})

			Convey("相邻条首尾相接", func() {
				So(cues[1].Start, ShouldAlmostEqual, cues[0].End)
			})

			Convey("较长的句子分到更多时长", func() {
				So(cues[1].End-cues[1].Start, ShouldBeGreaterThan, cues[0].End-cues[0].Start)
			})
		})

		Convey("中文句子按句末标点切分", func() {
			cues := EvenCues(splitter, "今天天气很好。我们一起出去玩吧！", 8, opts)
			So(len(cues), ShouldEqual, 2)
			So(cues[0].Text, ShouldEqual, "今天天气很好。")
			So(cues[1].End, ShouldAlmostEqual, 8)
		})

		Convey("超长句子按词单元继续切分", func() {
			tight := Options{MaxCueDuration: 5.0, MaxCueChars: 12}
			cues := EvenCues(splitter, "one two three four five six seven eight", 10, tight)

			So(len(cues), ShouldBeGreaterThan, 1)
			for _, cue := range cues {
				So(len(cue.Text), ShouldBeLessThanOrEqualTo, 12)
			}
			So(cues[len(cues)-1].End, ShouldAlmostEqual, 10)
		})
	})
}
