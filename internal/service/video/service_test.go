package video

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"vidgenai/internal/config"
	"vidgenai/internal/model/video"
	"vidgenai/internal/pkg/provider"
	"vidgenai/internal/pkg/script"
	"vidgenai/internal/pkg/storage"
	videorepo "vidgenai/internal/repository/video"
)

// fakeVideoRepo 内存假仓库，用于服务层状态语义测试
type fakeVideoRepo struct {
	videos  map[string]*video.Video
	deleted []string
	failed  []string
}

func newFakeVideoRepo(videos ...*video.Video) *fakeVideoRepo {
	r := &fakeVideoRepo{videos: make(map[string]*video.Video)}
	for _, v := range videos {
		r.videos[v.ID] = v
	}
	return r
}

func (r *fakeVideoRepo) Create(ctx context.Context, v *video.Video) error {
	r.videos[v.ID] = v
	return nil
}

func (r *fakeVideoRepo) FindByID(ctx context.Context, id string) (*video.Video, error) {
	v, ok := r.videos[id]
	if !ok {
		return nil, videorepo.ErrNotFound
	}
	return v, nil
}

func (r *fakeVideoRepo) List(ctx context.Context, status string, page, pageSize int) ([]*video.Video, int64, error) {
	var out []*video.Video
	for _, v := range r.videos {
		if status == "" || v.Status.String() == status {
			out = append(out, v)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeVideoRepo) UpdateStatus(ctx context.Context, id string, from, to video.VideoStatus, progress int) error {
	v, ok := r.videos[id]
	if !ok {
		return videorepo.ErrNotFound
	}
	if v.Status != from {
		return videorepo.ErrStaleTransition
	}
	v.Status = to
	if progress >= 0 {
		v.Progress = progress
	}
	return nil
}

func (r *fakeVideoRepo) MarkFailed(ctx context.Context, id string, stage video.VideoStatus, errorMsg string) error {
	v, ok := r.videos[id]
	if !ok {
		return videorepo.ErrNotFound
	}
	if v.Status.IsTerminal() {
		return videorepo.ErrStaleTransition
	}
	v.Status = video.VideoStatusFailed
	v.FailedStage = stage
	v.ErrorMessage = errorMsg
	r.failed = append(r.failed, id)
	return nil
}

func (r *fakeVideoRepo) MarkCompleted(ctx context.Context, id string, output *video.Output) error {
	v, ok := r.videos[id]
	if !ok {
		return videorepo.ErrNotFound
	}
	v.Status = video.VideoStatusCompleted
	v.Progress = 100
	v.Output = output
	return nil
}

// nonTerminal 阶段写入的前置检查，与真实仓库的非终态过滤一致
func (r *fakeVideoRepo) nonTerminal(id string) (*video.Video, error) {
	v, ok := r.videos[id]
	if !ok {
		return nil, videorepo.ErrNotFound
	}
	if v.Status.IsTerminal() {
		return nil, videorepo.ErrStaleTransition
	}
	return v, nil
}

func (r *fakeVideoRepo) UpdateScript(ctx context.Context, id string, script *video.Script, progress int) error {
	v, err := r.nonTerminal(id)
	if err != nil {
		return err
	}
	v.Script = script
	v.Progress = progress
	return nil
}

func (r *fakeVideoRepo) UpdateScenes(ctx context.Context, id string, scenes []video.Scene, progress int) error {
	v, err := r.nonTerminal(id)
	if err != nil {
		return err
	}
	if v.Script != nil {
		v.Script.Scenes = scenes
	}
	if progress >= 0 {
		v.Progress = progress
	}
	return nil
}

func (r *fakeVideoRepo) UpdateAudio(ctx context.Context, id string, audio *video.AudioAsset, scenes []video.Scene, progress int) error {
	v, err := r.nonTerminal(id)
	if err != nil {
		return err
	}
	v.Audio = audio
	v.Progress = progress
	return nil
}

func (r *fakeVideoRepo) AppendWarning(ctx context.Context, id string, warning string) error {
	v, err := r.nonTerminal(id)
	if err != nil {
		return err
	}
	v.Warnings = append(v.Warnings, warning)
	return nil
}

func (r *fakeVideoRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.videos[id]; !ok {
		return videorepo.ErrNotFound
	}
	delete(r.videos, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func newTestService(repo videorepo.VideoRepository) *videoService {
	return &videoService{
		repo:    repo,
		cancels: make(map[string]context.CancelFunc),
	}
}

func TestService_Cancel(t *testing.T) {
	Convey("Cancel 取消任务", t, func() {
		ctx := context.Background()

		Convey("运行中的任务被标记失败", func() {
			repo := newFakeVideoRepo(&video.Video{ID: "v1", Status: video.VideoStatusComposingVideo})
			s := newTestService(repo)

			err := s.Cancel(ctx, "v1")

			So(err, ShouldBeNil)
			v, _ := repo.FindByID(ctx, "v1")
			So(v.Status, ShouldEqual, video.VideoStatusFailed)
			So(v.FailedStage, ShouldEqual, video.VideoStatusComposingVideo)
			So(v.ErrorMessage, ShouldEqual, "cancelled by user")
		})

		Convey("取消触发流水线上下文取消", func() {
			repo := newFakeVideoRepo(&video.Video{ID: "v1", Status: video.VideoStatusPending})
			s := newTestService(repo)

			pipelineCtx, cancel := context.WithCancel(context.Background())
			s.registerCancel("v1", cancel)

			So(s.Cancel(ctx, "v1"), ShouldBeNil)
			So(pipelineCtx.Err(), ShouldNotBeNil)
		})

		Convey("终态任务返回 ErrNotCancellable", func() {
			repo := newFakeVideoRepo(&video.Video{ID: "v1", Status: video.VideoStatusCompleted})
			s := newTestService(repo)

			So(s.Cancel(ctx, "v1"), ShouldEqual, ErrNotCancellable)
		})

		Convey("任务不存在返回 ErrNotFound", func() {
			s := newTestService(newFakeVideoRepo())
			So(s.Cancel(ctx, "missing"), ShouldEqual, ErrNotFound)
		})
	})
}

func TestService_Delete(t *testing.T) {
	Convey("Delete 删除任务", t, func() {
		ctx := context.Background()

		Convey("终态任务可以删除", func() {
			repo := newFakeVideoRepo(&video.Video{ID: "v1", Status: video.VideoStatusFailed})
			s := newTestService(repo)

			So(s.Delete(ctx, "v1"), ShouldBeNil)
			So(repo.deleted, ShouldResemble, []string{"v1"})
		})

		Convey("运行中的任务返回 ErrNotDeletable", func() {
			repo := newFakeVideoRepo(&video.Video{ID: "v1", Status: video.VideoStatusUploading})
			s := newTestService(repo)

			So(s.Delete(ctx, "v1"), ShouldEqual, ErrNotDeletable)
			_, err := repo.FindByID(ctx, "v1")
			So(err, ShouldBeNil)
		})

		Convey("任务不存在返回 ErrNotFound", func() {
			s := newTestService(newFakeVideoRepo())
			So(s.Delete(ctx, "missing"), ShouldEqual, ErrNotFound)
		})
	})
}

func TestService_List(t *testing.T) {
	Convey("List 参数校验", t, func() {
		ctx := context.Background()
		repo := newFakeVideoRepo(
			&video.Video{ID: "v1", Status: video.VideoStatusCompleted},
			&video.Video{ID: "v2", Status: video.VideoStatusFailed},
		)
		s := newTestService(repo)

		Convey("未知状态过滤报错", func() {
			_, _, err := s.List(ctx, "bogus", 1, 20)
			So(err, ShouldNotBeNil)
		})

		Convey("合法状态过滤", func() {
			videos, total, err := s.List(ctx, "completed", 1, 20)
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 1)
			So(videos[0].ID, ShouldEqual, "v1")
		})

		Convey("空状态查询全部", func() {
			_, total, err := s.List(ctx, "", 1, 20)
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 2)
		})
	})
}

// fakeScriptGen 可编程的脚本生成器，记录每次收到的请求
type fakeScriptGen struct {
	name    string
	reqs    []*script.Request
	failErr error // 首次调用返回的错误，nil 表示直接成功
}

func (g *fakeScriptGen) Name() string { return g.name }

func (g *fakeScriptGen) Generate(ctx context.Context, req *script.Request) (*video.Script, error) {
	cp := *req
	g.reqs = append(g.reqs, &cp)
	if len(g.reqs) == 1 && g.failErr != nil {
		return nil, g.failErr
	}
	return &video.Script{
		Title:  "T",
		Scenes: []video.Scene{{Narration: "A scene.", SearchTerm: "scene"}},
	}, nil
}

func TestStageScript_TightenedRetry(t *testing.T) {
	Convey("stageScript 脚本越界后的收紧重试", t, func() {
		ctx := context.Background()

		newScriptService := func(gen *fakeScriptGen) (*videoService, *fakeVideoRepo) {
			repo := newFakeVideoRepo(&video.Video{
				ID:     "v1",
				Topic:  "deep sea creatures",
				Status: video.VideoStatusGeneratingScript,
			})
			s := newTestService(repo)
			s.cfg = &config.Config{}
			s.scriptGens = []script.Generator{gen}
			return s, repo
		}

		Convey("越界响应收紧提示词后同一提供方重试一次", func() {
			gen := &fakeScriptGen{
				name: "primary",
				failErr: provider.NewError(provider.ErrInvalidResponse, "primary", "generate_script",
					fmt.Errorf("scene count 9 out of range [1, 5]")),
			}
			s, repo := newScriptService(gen)

			v, _ := repo.FindByID(ctx, "v1")
			err := s.stageScript(ctx, &pipelineState{video: v})

			So(err, ShouldBeNil)
			So(len(gen.reqs), ShouldEqual, 2)
			So(gen.reqs[0].Strict, ShouldBeFalse)
			So(gen.reqs[1].Strict, ShouldBeTrue)

			saved, _ := repo.FindByID(ctx, "v1")
			So(saved.Script, ShouldNotBeNil)
			So(saved.Script.Title, ShouldEqual, "T")
		})

		Convey("鉴权失败不触发收紧重试", func() {
			gen := &fakeScriptGen{
				name: "primary",
				failErr: provider.NewError(provider.ErrAuth, "primary", "generate_script",
					fmt.Errorf("bad key")),
			}
			s, repo := newScriptService(gen)

			v, _ := repo.FindByID(ctx, "v1")
			err := s.stageScript(ctx, &pipelineState{video: v})

			So(err, ShouldNotBeNil)
			So(len(gen.reqs), ShouldEqual, 1)
		})
	})
}

func TestStageWritesAfterCancel(t *testing.T) {
	Convey("取消后在途阶段的迟到写入被拒绝", t, func() {
		ctx := context.Background()
		repo := newFakeVideoRepo(&video.Video{ID: "v1", Status: video.VideoStatusGeneratingScript})
		s := newTestService(repo)

		So(s.Cancel(ctx, "v1"), ShouldBeNil)

		err := repo.UpdateScript(ctx, "v1", &video.Script{Title: "late"}, 20)
		So(err, ShouldEqual, videorepo.ErrStaleTransition)

		So(repo.AppendWarning(ctx, "v1", "late warning"), ShouldEqual, videorepo.ErrStaleTransition)

		v, _ := repo.FindByID(ctx, "v1")
		So(v.Status, ShouldEqual, video.VideoStatusFailed)
		So(v.Script, ShouldBeNil)
		So(v.Warnings, ShouldBeEmpty)
	})
}

// fakeStorage 内存假存储，可按key子串注入上传失败
type fakeStorage struct {
	mu       sync.Mutex
	uploaded map[string]string // key -> contentType
	failKeys []string
}

func (f *fakeStorage) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.failKeys {
		if strings.Contains(key, sub) {
			return "", fmt.Errorf("upload rejected: %s", key)
		}
	}
	if f.uploaded == nil {
		f.uploaded = make(map[string]string)
	}
	f.uploaded[key] = contentType
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("not supported")
}

func (f *fakeStorage) GetPresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error { return nil }

func (f *fakeStorage) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.uploaded[key]
	return ok, nil
}

func (f *fakeStorage) GetFileInfo(ctx context.Context, key string) (*storage.FileInfo, error) {
	return nil, fmt.Errorf("not supported")
}

func (f *fakeStorage) GetStorageType() string { return "fake" }

func TestStageUpload(t *testing.T) {
	Convey("stageUpload 上传产物并落库", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		videoPath := filepath.Join(dir, "final.mp4")
		thumbPath := filepath.Join(dir, "thumbnail.jpg")
		srtPath := filepath.Join(dir, "subtitles.srt")
		So(os.WriteFile(videoPath, []byte("fake mp4 payload"), 0644), ShouldBeNil)
		So(os.WriteFile(thumbPath, []byte("fake jpeg"), 0644), ShouldBeNil)
		So(os.WriteFile(srtPath, []byte("1\n00:00:00,000 --> 00:00:01,000\nhi\n"), 0644), ShouldBeNil)

		newUploadService := func(store storage.Storage) (*videoService, *fakeVideoRepo, *video.Video) {
			v := &video.Video{ID: "v1", Status: video.VideoStatusUploading}
			repo := newFakeVideoRepo(v)
			s := newTestService(repo)
			s.cfg = &config.Config{}
			s.store = store
			return s, repo, v
		}

		fullState := func(v *video.Video) *pipelineState {
			return &pipelineState{
				video:         v,
				videoPath:     videoPath,
				thumbnailPath: thumbPath,
				srtPath:       srtPath,
				finalDuration: 12.5,
				finalWidth:    480,
				finalHeight:   854,
				finalSize:     16,
			}
		}

		Convey("全部成功时任务完成并记录成片元数据", func() {
			store := &fakeStorage{}
			s, repo, v := newUploadService(store)

			So(s.stageUpload(ctx, fullState(v)), ShouldBeNil)

			saved, _ := repo.FindByID(ctx, "v1")
			So(saved.Status, ShouldEqual, video.VideoStatusCompleted)
			So(saved.Output, ShouldNotBeNil)
			So(saved.Output.VideoURL, ShouldContainSubstring, "videos/v1/video.mp4")
			So(saved.Output.ThumbnailURL, ShouldContainSubstring, "videos/v1/thumbnail.jpg")
			So(saved.Output.SubtitleURL, ShouldContainSubstring, "videos/v1/subtitles.srt")
			So(saved.Output.Duration, ShouldAlmostEqual, 12.5)
			So(saved.Output.Width, ShouldEqual, 480)
			So(saved.Output.Height, ShouldEqual, 854)
			So(saved.Output.SizeBytes, ShouldEqual, 16)
		})

		Convey("封面上传失败导致阶段失败", func() {
			store := &fakeStorage{failKeys: []string{"thumbnail"}}
			s, repo, v := newUploadService(store)

			So(s.stageUpload(ctx, fullState(v)), ShouldNotBeNil)

			saved, _ := repo.FindByID(ctx, "v1")
			So(saved.Status, ShouldEqual, video.VideoStatusUploading)
			So(saved.Output, ShouldBeNil)
		})

		Convey("缺少封面直接失败", func() {
			s, _, v := newUploadService(&fakeStorage{})
			st := fullState(v)
			st.thumbnailPath = ""

			So(s.stageUpload(ctx, st), ShouldNotBeNil)
		})

		Convey("字幕上传失败只记告警，任务仍完成", func() {
			store := &fakeStorage{failKeys: []string{"subtitles"}}
			s, repo, v := newUploadService(store)

			So(s.stageUpload(ctx, fullState(v)), ShouldBeNil)

			saved, _ := repo.FindByID(ctx, "v1")
			So(saved.Status, ShouldEqual, video.VideoStatusCompleted)
			So(saved.Output.SubtitleURL, ShouldBeEmpty)
			So(len(saved.Warnings), ShouldEqual, 1)
		})
	})
}
