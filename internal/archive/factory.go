package archive

import (
	"fmt"

	"cms-go/internal/cms"
	"cms-go/internal/config"
)

// NewArchiveFromConfig creates an Archive implementation based on the history config type.
func NewArchiveFromConfig(cfg config.HistoryConfig, clock cms.Clock) (cms.Archive, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryArchive(clock), nil
	case "filesystem", "":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem history requires dir to be set")
		}
		return NewFileSystemArchive(cfg.Dir, clock)
	case "s3":
		return NewS3Archive(S3Config{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			PathStyle:       cfg.S3PathStyle,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		}, clock)
	default:
		return nil, fmt.Errorf("unknown history type: %s", cfg.Type)
	}
}
