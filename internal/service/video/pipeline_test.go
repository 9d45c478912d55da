package video

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"vidgenai/internal/model/video"
)

func TestAllocateSceneDurations(t *testing.T) {
	Convey("allocateSceneDurations 按解说长度分配画面时长", t, func() {
		Convey("时长与字符数占比成正比", func() {
			scenes := []video.Scene{
				{Narration: strings.Repeat("a", 10)},
				{Narration: strings.Repeat("b", 20)},
				{Narration: strings.Repeat("c", 30)},
			}

			allocateSceneDurations(scenes, 6.0)

			So(scenes[0].Duration, ShouldAlmostEqual, 1.0)
			So(scenes[1].Duration, ShouldAlmostEqual, 2.0)
			So(scenes[2].Duration, ShouldAlmostEqual, 3.0)
		})

		Convey("各分镜时长之和精确等于音频时长", func() {
			scenes := []video.Scene{
				{Narration: "odd length one"},
				{Narration: "another odd narration here"},
				{Narration: "x"},
			}

			audioDuration := 37.77
			allocateSceneDurations(scenes, audioDuration)

			sum := 0.0
			for _, sc := range scenes {
				sum += sc.Duration
			}
			So(sum, ShouldEqual, audioDuration)
		})

		Convey("CJK 解说按字符数计算", func() {
			scenes := []video.Scene{
				{Narration: "今天"},
				{Narration: "今天天气"},
			}

			allocateSceneDurations(scenes, 3.0)

			So(scenes[0].Duration, ShouldAlmostEqual, 1.0)
			So(scenes[1].Duration, ShouldAlmostEqual, 2.0)
		})

		Convey("解说全空时均分兜底", func() {
			scenes := []video.Scene{{Narration: ""}, {Narration: ""}}
			allocateSceneDurations(scenes, 4.0)
			So(scenes[0].Duration, ShouldAlmostEqual, 2.0)
			So(scenes[1].Duration, ShouldAlmostEqual, 2.0)
		})
	})
}

func TestJoinNarrations(t *testing.T) {
	Convey("joinNarrations 按分镜顺序拼接解说", t, func() {
		scenes := []video.Scene{
			{Narration: "First sentence. "},
			{Narration: "Second sentence."},
		}
		So(joinNarrations(scenes), ShouldEqual, "First sentence. Second sentence.")
	})
}

func TestPickDonor(t *testing.T) {
	Convey("pickDonor 为无图分镜选择复用来源", t, func() {
		Convey("无相邻冲突时取距离最小的分镜，距离相同取靠前的", func() {
			scenes := []video.Scene{
				{ImagePath: "a.jpg"},
				{},
				{},
				{},
				{ImagePath: "b.jpg"},
			}
			So(pickDonor(scenes, []int{0, 4}, 2), ShouldEqual, 0)
			So(pickDonor(scenes, []int{4}, 0), ShouldEqual, 4)
		})

		Convey("避开会造成相邻画面重复的分镜", func() {
			// 分镜2缺图，最近的3号与其相邻，复用会连续重复，应改选0号
			scenes := []video.Scene{
				{ImagePath: "a.jpg"},
				{},
				{},
				{ImagePath: "b.jpg"},
			}
			So(pickDonor(scenes, []int{0, 3}, 2), ShouldEqual, 0)
		})

		Convey("所有来源都与相邻重复时退回最近分镜", func() {
			scenes := []video.Scene{
				{ImagePath: "a.jpg"},
				{},
			}
			So(pickDonor(scenes, []int{0}, 1), ShouldEqual, 0)
		})
	})
}

func TestSceneSearchTerms(t *testing.T) {
	Convey("sceneSearchTerms 分镜检索词序列", t, func() {
		Convey("先用分镜检索词再退回主题级检索", func() {
			scene := &video.Scene{SearchTerm: "anglerfish deep sea"}
			terms := sceneSearchTerms(scene, "deep sea creatures")
			So(terms, ShouldResemble, []string{"anglerfish deep sea", "deep sea creatures portrait"})
		})

		Convey("分镜检索词为空时只剩主题级检索", func() {
			terms := sceneSearchTerms(&video.Scene{}, "deep sea creatures")
			So(terms, ShouldResemble, []string{"deep sea creatures portrait"})
		})

		Convey("主题级检索词不重复出现", func() {
			scene := &video.Scene{SearchTerm: "deep sea creatures portrait"}
			terms := sceneSearchTerms(scene, "deep sea creatures")
			So(terms, ShouldResemble, []string{"deep sea creatures portrait"})
		})
	})
}

func TestIsKnownStatus(t *testing.T) {
	Convey("isKnownStatus 校验状态过滤参数", t, func() {
		So(isKnownStatus("pending"), ShouldBeTrue)
		So(isKnownStatus("completed"), ShouldBeTrue)
		So(isKnownStatus("failed"), ShouldBeTrue)
		So(isKnownStatus("generating_script"), ShouldBeTrue)
		So(isKnownStatus("nonsense"), ShouldBeFalse)
		So(isKnownStatus(""), ShouldBeFalse)
	})
}
