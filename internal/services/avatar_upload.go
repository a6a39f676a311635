package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"supermock/internal/apperrors"
	sconfig "supermock/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// 头像允许的类型及扩展名
var avatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

const avatarURLExpiry = 15 * time.Minute

// AvatarUpload 预签名上传结果
type AvatarUpload struct {
	UploadURL string    `json:"upload_url"` // 客户端直接 PUT 到这里
	AvatarURL string    `json:"avatar_url"` // 上传完成后的访问地址，写回 profile
	ObjectKey string    `json:"object_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AvatarUploader 生成 S3 预签名 PUT 地址，文件不经过本服务
type AvatarUploader struct {
	presign    *s3.PresignClient
	bucket     string
	publicBase string
}

// NewAvatarUploader 未配置存储时返回 nil
func NewAvatarUploader(ctx context.Context, cfg sconfig.S3Config) (*AvatarUploader, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	publicBase := strings.TrimRight(cfg.PublicBaseURL, "/")
	if publicBase == "" {
		if cfg.Endpoint != "" {
			publicBase = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &AvatarUploader{
		presign:    s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		publicBase: publicBase,
	}, nil
}

// PresignAvatar 为用户生成头像上传地址
func (u *AvatarUploader) PresignAvatar(ctx context.Context, userID uuid.UUID, contentType string) (*AvatarUpload, error) {
	if u == nil {
		return nil, apperrors.BadRequest("Avatar storage is not configured")
	}
	ext, ok := avatarTypes[contentType]
	if !ok {
		return nil, apperrors.BadRequest("Unsupported image type: use image/jpeg, image/png or image/webp")
	}

	key := fmt.Sprintf("avatars/%s/%s%s", userID, uuid.NewString(), ext)
	req, err := u.presign.PresignPutObject(ctx,
		&s3.PutObjectInput{
			Bucket:      aws.String(u.bucket),
			Key:         aws.String(key),
			ContentType: aws.String(contentType),
		},
		func(opts *s3.PresignOptions) {
			opts.Expires = avatarURLExpiry
		},
	)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("presign avatar upload: %w", err))
	}

	return &AvatarUpload{
		UploadURL: req.URL,
		AvatarURL: u.publicBase + "/" + key,
		ObjectKey: key,
		ExpiresAt: time.Now().Add(avatarURLExpiry),
	}, nil
}
