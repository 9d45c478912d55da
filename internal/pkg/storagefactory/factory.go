package storagefactory

import (
	"fmt"

	"vidgenai/internal/config"
	"vidgenai/internal/pkg/storage"
	"vidgenai/internal/pkg/storage/local"
	"vidgenai/internal/pkg/storage/minio"
	"vidgenai/internal/pkg/storage/oss"
)

// NewStorage 根据配置创建存储实例
func NewStorage(cfg *config.StorageConfig) (storage.Storage, error) {
	switch storage.StorageType(cfg.Type) {
	case storage.StorageTypeLocal:
		if cfg.Local == nil {
			return nil, fmt.Errorf("local storage config is required")
		}
		return local.NewLocalStorage(
			cfg.Local.BasePath,
			cfg.Local.BaseURL,
			cfg.Local.PresignExpiry,
		)
	case storage.StorageTypeOSS:
		if cfg.OSS == nil {
			return nil, fmt.Errorf("oss storage config is required")
		}
		return oss.NewOSSStorage(
			cfg.OSS.Endpoint,
			cfg.OSS.AccessKeyID,
			cfg.OSS.AccessKeySecret,
			cfg.OSS.Bucket,
			"",
		)
	case storage.StorageTypeMinIO:
		if cfg.MinIO == nil {
			return nil, fmt.Errorf("minio storage config is required")
		}
		return minio.NewMinIOStorage(
			cfg.MinIO.Endpoint,
			cfg.MinIO.AccessKeyID,
			cfg.MinIO.AccessKeySecret,
			cfg.MinIO.Bucket,
			"",
			cfg.MinIO.UseSSL,
		)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
