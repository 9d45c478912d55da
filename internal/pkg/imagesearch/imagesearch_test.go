package imagesearch

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFilterMinSize(t *testing.T) {
	Convey("FilterMinSize 过滤过小候选", t, func() {
		candidates := []Candidate{
			{URL: "a", Width: 800, Height: 600},
			{URL: "b", Width: 200, Height: 600},
			{URL: "c", Width: 800, Height: 100},
			{URL: "d"}, // 尺寸未知
		}

		out := FilterMinSize(candidates, 400, 400)

		So(len(out), ShouldEqual, 2)
		So(out[0].URL, ShouldEqual, "a")

		Convey("尺寸未知的候选保留，由下载后校验把关", func() {
			So(out[1].URL, ShouldEqual, "d")
		})
	})
}

func TestWatermarkSource(t *testing.T) {
	Convey("WatermarkSource 识别图库来源", t, func() {
		Convey("商业图库域名命中", func() {
			So(WatermarkSource("https://www.shutterstock.com/image/123"), ShouldBeTrue)
			So(WatermarkSource("https://media.gettyimages.com/photos/x.jpg"), ShouldBeTrue)
			So(WatermarkSource("https://stock.adobe.com/cn/images/456"), ShouldBeTrue)
		})

		Convey("普通来源不命中", func() {
			So(WatermarkSource("https://en.wikipedia.org/wiki/Octopus"), ShouldBeFalse)
			So(WatermarkSource(""), ShouldBeFalse)
		})
	})
}

func TestDropWatermarked(t *testing.T) {
	Convey("DropWatermarked 剔除疑似带水印的候选", t, func() {
		candidates := []Candidate{
			{URL: "a"},
			{URL: "b", Watermark: true},
			{URL: "c"},
		}

		out := DropWatermarked(candidates)

		So(len(out), ShouldEqual, 2)
		So(out[0].URL, ShouldEqual, "a")
		So(out[1].URL, ShouldEqual, "c")

		Convey("全部带水印时返回空", func() {
			So(DropWatermarked([]Candidate{{URL: "x", Watermark: true}}), ShouldBeEmpty)
		})
	})
}

func TestRankByAspectRatio(t *testing.T) {
	Convey("RankByAspectRatio 按宽高比接近程度排序", t, func() {
		Convey("竖屏目标时竖图排前", func() {
			candidates := []Candidate{
				{URL: "landscape", Width: 1920, Height: 1080},
				{URL: "portrait", Width: 1080, Height: 1920},
				{URL: "square", Width: 1000, Height: 1000},
			}

			ranked := RankByAspectRatio(candidates, 480, 854)

			So(ranked[0].URL, ShouldEqual, "portrait")
			So(ranked[2].URL, ShouldEqual, "landscape")
		})

		Convey("尺寸未知的候选排在已知尺寸之后", func() {
			candidates := []Candidate{
				{URL: "unknown"},
				{URL: "known", Width: 480, Height: 854},
			}

			ranked := RankByAspectRatio(candidates, 480, 854)

			So(ranked[0].URL, ShouldEqual, "known")
			So(ranked[1].URL, ShouldEqual, "unknown")
		})

		Convey("原切片不被修改", func() {
			candidates := []Candidate{
				{URL: "wide", Width: 1920, Height: 1080},
				{URL: "tall", Width: 1080, Height: 1920},
			}

			_ = RankByAspectRatio(candidates, 480, 854)
			So(candidates[0].URL, ShouldEqual, "wide")
		})

		Convey("目标尺寸非法时保持原序", func() {
			candidates := []Candidate{{URL: "a"}, {URL: "b"}}
			ranked := RankByAspectRatio(candidates, 0, 0)
			So(ranked[0].URL, ShouldEqual, "a")
		})
	})
}
