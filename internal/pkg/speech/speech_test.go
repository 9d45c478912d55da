package speech

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGroupCharTimings(t *testing.T) {
	Convey("GroupCharTimings 合并字符级时间戳为词级", t, func() {
		Convey("空输入返回 nil", func() {
			So(GroupCharTimings(nil, nil, nil), ShouldBeNil)
		})

		Convey("长度不匹配返回 nil", func() {
			So(GroupCharTimings([]string{"a", "b"}, []float64{0}, []float64{0.1}), ShouldBeNil)
		})

		Convey("拉丁字符按空白分词", func() {
			chars := []string{"H", "i", " ", "y", "o", "u"}
			starts := []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5}
			ends := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}

			timings := GroupCharTimings(chars, starts, ends)

			So(len(timings), ShouldEqual, 2)
			So(timings[0].Text, ShouldEqual, "Hi")
			So(timings[0].Start, ShouldAlmostEqual, 0)
			So(timings[0].End, ShouldAlmostEqual, 0.2)
			So(timings[1].Text, ShouldEqual, "you")
			So(timings[1].Start, ShouldAlmostEqual, 0.3)
			So(timings[1].End, ShouldAlmostEqual, 0.6)
		})

		Convey("CJK 字符各自成词", func() {
			chars := []string{"你", "好"}
			starts := []float64{0, 0.3}
			ends := []float64{0.3, 0.6}

			timings := GroupCharTimings(chars, starts, ends)

			So(len(timings), ShouldEqual, 2)
			So(timings[0].Text, ShouldEqual, "你")
			So(timings[1].Text, ShouldEqual, "好")
		})

		Convey("拉丁与CJK混排", func() {
			chars := []string{"O", "K", "了"}
			starts := []float64{0, 0.1, 0.2}
			ends := []float64{0.1, 0.2, 0.4}

			timings := GroupCharTimings(chars, starts, ends)

			So(len(timings), ShouldEqual, 2)
			So(timings[0].Text, ShouldEqual, "OK")
			So(timings[0].End, ShouldAlmostEqual, 0.2)
			So(timings[1].Text, ShouldEqual, "了")
		})
	})
}

func TestClassifyHTTPStatus(t *testing.T) {
	Convey("classifyHTTPStatus 映射HTTP状态码到错误分类", t, func() {
		cases := []struct {
			status int
			want   string
		}{
			{429, "rate_limited"},
			{401, "auth"},
			{403, "auth"},
			{500, "unavailable"},
			{503, "unavailable"},
			{400, "invalid_response"},
		}
		for _, c := range cases {
			err := classifyHTTPStatus("tts", "synthesize", c.status, "body")
			So(err.Error(), ShouldContainSubstring, c.want)
		}
	})
}
