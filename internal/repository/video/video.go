package video

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vidgenai/internal/model/video"
)

// ErrNotFound 任务不存在
var ErrNotFound = errors.New("video not found")

// ErrStaleTransition 状态迁移冲突（当前状态已不满足迁移前置条件）
var ErrStaleTransition = errors.New("stale status transition")

// VideoRepository 视频任务仓库接口
type VideoRepository interface {
	Create(ctx context.Context, v *video.Video) error
	FindByID(ctx context.Context, id string) (*video.Video, error)
	List(ctx context.Context, status string, page, pageSize int) ([]*video.Video, int64, error)
	UpdateStatus(ctx context.Context, id string, from, to video.VideoStatus, progress int) error
	MarkFailed(ctx context.Context, id string, stage video.VideoStatus, errorMsg string) error
	MarkCompleted(ctx context.Context, id string, output *video.Output) error
	UpdateScript(ctx context.Context, id string, script *video.Script, progress int) error
	UpdateScenes(ctx context.Context, id string, scenes []video.Scene, progress int) error
	UpdateAudio(ctx context.Context, id string, audio *video.AudioAsset, scenes []video.Scene, progress int) error
	AppendWarning(ctx context.Context, id string, warning string) error
	Delete(ctx context.Context, id string) error
}

// VideoRepo 视频任务仓库实现
type VideoRepo struct {
	coll *mongo.Collection
}

// NewVideoRepo 创建视频任务仓库
func NewVideoRepo(db *mongo.Database) *VideoRepo {
	var v video.Video
	return &VideoRepo{coll: db.Collection(v.Collection())}
}

// Create 创建任务记录
func (r *VideoRepo) Create(ctx context.Context, v *video.Video) error {
	now := time.Now()
	v.CreatedAt = now
	v.UpdatedAt = now
	if v.Status == "" {
		v.Status = video.VideoStatusPending
	}
	if v.AspectRatio == "" {
		v.AspectRatio = video.AspectRatioPortrait
	}
	_, err := r.coll.InsertOne(ctx, v)
	return err
}

// FindByID 根据ID查询任务
func (r *VideoRepo) FindByID(ctx context.Context, id string) (*video.Video, error) {
	var v video.Video
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&v); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// List 分页查询任务，status 为空时查询全部
func (r *VideoRepo) List(ctx context.Context, status string, page, pageSize int) ([]*video.Video, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var videos []*video.Video
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, 0, err
	}
	return videos, total, nil
}

// UpdateStatus 阶段推进：compare-and-set，from 不匹配时返回 ErrStaleTransition
// 进度只增不减，取消/失败路径依赖该前置条件避免覆盖终态
func (r *VideoRepo) UpdateStatus(ctx context.Context, id string, from, to video.VideoStatus, progress int) error {
	update := bson.M{
		"status":     to,
		"updated_at": time.Now(),
	}
	if progress >= 0 {
		update["progress"] = progress
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "status": from},
		bson.M{"$set": update},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// 区分任务不存在与状态冲突
		if _, ferr := r.FindByID(ctx, id); ferr != nil {
			return ferr
		}
		return ErrStaleTransition
	}
	return nil
}

// MarkFailed 标记任务失败，记录失败时所处阶段与原因
// 已处于终态的任务不会被覆盖
func (r *VideoRepo) MarkFailed(ctx context.Context, id string, stage video.VideoStatus, errorMsg string) error {
	res, err := r.coll.UpdateOne(ctx,
		nonTerminalFilter(id),
		bson.M{"$set": bson.M{
			"status":        video.VideoStatusFailed,
			"failed_stage":  stage,
			"error_message": errorMsg,
			"updated_at":    time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, ferr := r.FindByID(ctx, id); ferr != nil {
			return ferr
		}
		return ErrStaleTransition
	}
	return nil
}

// MarkCompleted 标记任务完成并写入最终产物
func (r *VideoRepo) MarkCompleted(ctx context.Context, id string, output *video.Output) error {
	now := time.Now()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "status": video.VideoStatusUploading},
		bson.M{"$set": bson.M{
			"status":       video.VideoStatusCompleted,
			"progress":     100,
			"output":       output,
			"completed_at": now,
			"updated_at":   now,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, ferr := r.FindByID(ctx, id); ferr != nil {
			return ferr
		}
		return ErrStaleTransition
	}
	return nil
}

// UpdateScript 保存生成的脚本
func (r *VideoRepo) UpdateScript(ctx context.Context, id string, script *video.Script, progress int) error {
	return r.set(ctx, id, bson.M{"script": script, "progress": progress})
}

// UpdateScenes 更新场景列表（图片结果、时长分配）
func (r *VideoRepo) UpdateScenes(ctx context.Context, id string, scenes []video.Scene, progress int) error {
	update := bson.M{"script.scenes": scenes}
	if progress >= 0 {
		update["progress"] = progress
	}
	return r.set(ctx, id, update)
}

// UpdateAudio 保存配音产物及场景时长分配
func (r *VideoRepo) UpdateAudio(ctx context.Context, id string, audio *video.AudioAsset, scenes []video.Scene, progress int) error {
	update := bson.M{"audio": audio, "progress": progress}
	if scenes != nil {
		update["script.scenes"] = scenes
	}
	return r.set(ctx, id, update)
}

// AppendWarning 追加非致命告警
// 终态记录不可追加，冲突时返回 ErrStaleTransition
func (r *VideoRepo) AppendWarning(ctx context.Context, id string, warning string) error {
	res, err := r.coll.UpdateOne(ctx,
		nonTerminalFilter(id),
		bson.M{
			"$push": bson.M{"warnings": warning},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, ferr := r.FindByID(ctx, id); ferr != nil {
			return ferr
		}
		return ErrStaleTransition
	}
	return nil
}

// Delete 删除任务记录
func (r *VideoRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// set 阶段产物落库
// 只写非终态记录：任务取消或失败后，在途阶段的迟到写入不得改动终态记录
func (r *VideoRepo) set(ctx context.Context, id string, fields bson.M) error {
	fields["updated_at"] = time.Now()
	res, err := r.coll.UpdateOne(ctx, nonTerminalFilter(id), bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, ferr := r.FindByID(ctx, id); ferr != nil {
			return ferr
		}
		return ErrStaleTransition
	}
	return nil
}

// nonTerminalFilter 匹配指定ID且尚未进入终态的记录
func nonTerminalFilter(id string) bson.M {
	return bson.M{
		"id":     id,
		"status": bson.M{"$nin": bson.A{video.VideoStatusCompleted, video.VideoStatusFailed}},
	}
}
