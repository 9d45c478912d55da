package imagesearch

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	// 注册常见图片格式解码器
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Downloader 候选图片下载与校验
type Downloader struct {
	httpClient *http.Client
	minWidth   int
	minHeight  int
}

// NewDownloader 创建图片下载器
func NewDownloader(minWidth, minHeight int) *Downloader {
	return &Downloader{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		minWidth:   minWidth,
		minHeight:  minHeight,
	}
}

// Fetch 下载并校验候选图片，写入 destPath
// 非图片响应、解码失败或尺寸不足均返回错误，由调用方尝试下一个候选
func (d *Downloader) Fetch(ctx context.Context, imageURL, destPath string) (width, height int, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; vidgenai/1.0)")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(ct, "image/") {
		return 0, 0, fmt.Errorf("not an image: content-type %s", ct)
	}

	// 限制单图20MB，防御异常大响应
	data, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return 0, 0, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width < d.minWidth || cfg.Height < d.minHeight {
		return 0, 0, fmt.Errorf("image too small: %dx%d", cfg.Width, cfg.Height)
	}

	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
