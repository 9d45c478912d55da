package video

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestVideoStatus(t *testing.T) {
	Convey("VideoStatus 状态机", t, func() {
		Convey("只有 completed 和 failed 是终态", func() {
			So(VideoStatusCompleted.IsTerminal(), ShouldBeTrue)
			So(VideoStatusFailed.IsTerminal(), ShouldBeTrue)
			So(VideoStatusPending.IsTerminal(), ShouldBeFalse)
			So(VideoStatusComposingVideo.IsTerminal(), ShouldBeFalse)
		})

		Convey("状态只能按阶段顺序前进一步", func() {
			So(VideoStatusPending.CanTransitionTo(VideoStatusGeneratingScript), ShouldBeTrue)
			So(VideoStatusGeneratingScript.CanTransitionTo(VideoStatusFetchingImages), ShouldBeTrue)
			So(VideoStatusUploading.CanTransitionTo(VideoStatusCompleted), ShouldBeTrue)

			Convey("跳级与回退均不合法", func() {
				So(VideoStatusPending.CanTransitionTo(VideoStatusFetchingImages), ShouldBeFalse)
				So(VideoStatusFetchingImages.CanTransitionTo(VideoStatusGeneratingScript), ShouldBeFalse)
				So(VideoStatusPending.CanTransitionTo(VideoStatusCompleted), ShouldBeFalse)
			})
		})

		Convey("任意非终态都可以迁移到 failed", func() {
			So(VideoStatusPending.CanTransitionTo(VideoStatusFailed), ShouldBeTrue)
			So(VideoStatusUploading.CanTransitionTo(VideoStatusFailed), ShouldBeTrue)
		})

		Convey("终态不可再迁移", func() {
			So(VideoStatusCompleted.CanTransitionTo(VideoStatusFailed), ShouldBeFalse)
			So(VideoStatusFailed.CanTransitionTo(VideoStatusPending), ShouldBeFalse)
		})
	})
}

func TestProgressForStatus(t *testing.T) {
	Convey("ProgressForStatus 阶段进度基线", t, func() {
		So(ProgressForStatus(VideoStatusPending), ShouldEqual, 0)
		So(ProgressForStatus(VideoStatusGeneratingScript), ShouldEqual, 10)
		So(ProgressForStatus(VideoStatusFetchingImages), ShouldEqual, 30)
		So(ProgressForStatus(VideoStatusGeneratingAudio), ShouldEqual, 50)
		So(ProgressForStatus(VideoStatusGeneratingSubtitles), ShouldEqual, 70)
		So(ProgressForStatus(VideoStatusComposingVideo), ShouldEqual, 80)
		So(ProgressForStatus(VideoStatusUploading), ShouldEqual, 90)
		So(ProgressForStatus(VideoStatusCompleted), ShouldEqual, 100)

		Convey("failed 保持当前进度", func() {
			So(ProgressForStatus(VideoStatusFailed), ShouldEqual, -1)
		})

		Convey("进度基线沿阶段单调不减", func() {
			order := []VideoStatus{
				VideoStatusPending, VideoStatusGeneratingScript, VideoStatusFetchingImages,
				VideoStatusGeneratingAudio, VideoStatusGeneratingSubtitles,
				VideoStatusComposingVideo, VideoStatusUploading, VideoStatusCompleted,
			}
			prev := -1
			for _, s := range order {
				p := ProgressForStatus(s)
				So(p, ShouldBeGreaterThan, prev)
				prev = p
			}
		})
	})
}

func TestAspectRatio(t *testing.T) {
	Convey("AspectRatio 画面比例", t, func() {
		Convey("三种受支持的比例", func() {
			So(AspectRatioPortrait.IsValid(), ShouldBeTrue)
			So(AspectRatioLandscape.IsValid(), ShouldBeTrue)
			So(AspectRatioSquare.IsValid(), ShouldBeTrue)
			So(AspectRatio("4:3").IsValid(), ShouldBeFalse)
			So(AspectRatio("").IsValid(), ShouldBeFalse)
		})

		Convey("比例对应的输出分辨率", func() {
			w, h := AspectRatioPortrait.Dimensions()
			So(w, ShouldEqual, 480)
			So(h, ShouldEqual, 854)

			w, h = AspectRatioLandscape.Dimensions()
			So(w, ShouldEqual, 854)
			So(h, ShouldEqual, 480)

			w, h = AspectRatioSquare.Dimensions()
			So(w, ShouldEqual, 480)
			So(h, ShouldEqual, 480)
		})

		Convey("输出宽高都是偶数（libx264 yuv420p 要求）", func() {
			for _, a := range []AspectRatio{AspectRatioPortrait, AspectRatioLandscape, AspectRatioSquare} {
				w, h := a.Dimensions()
				So(w%2, ShouldEqual, 0)
				So(h%2, ShouldEqual, 0)
			}
		})
	})
}
