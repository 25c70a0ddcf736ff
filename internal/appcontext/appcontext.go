package appcontext

import (
	"cloud.google.com/go/storage"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Context struct {
	DB     *gorm.DB
	Logger *zap.Logger

	RedisClient *redis.Client

	GCSClient     *storage.Client
	GCSBucketName string

	MeilisearchClient *meilisearch.Client

	JWTSecret   []byte
	UploadDir   string
	FrontendURL string
}
