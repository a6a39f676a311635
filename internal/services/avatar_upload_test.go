package services

import (
	"context"
	"strings"
	"testing"

	"supermock/internal/apperrors"
	"supermock/internal/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvatarUploaderDisabled(t *testing.T) {
	u, err := NewAvatarUploader(context.Background(), config.S3Config{})
	require.NoError(t, err)
	assert.Nil(t, u)

	_, err = u.PresignAvatar(context.Background(), uuid.New(), "image/png")
	requireAppError(t, err, apperrors.KindBadRequest, "Avatar storage is not configured")
}

func TestPresignAvatar(t *testing.T) {
	ctx := context.Background()
	u, err := NewAvatarUploader(ctx, config.S3Config{
		Endpoint:     "http://localhost:9000",
		Region:       "us-east-1",
		Bucket:       "avatars",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		UsePathStyle: true,
	})
	require.NoError(t, err)
	require.NotNil(t, u)

	userID := uuid.New()
	up, err := u.PresignAvatar(ctx, userID, "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(up.ObjectKey, "avatars/"+userID.String()+"/"))
	assert.True(t, strings.HasSuffix(up.ObjectKey, ".png"))
	assert.True(t, strings.HasPrefix(up.UploadURL, "http://localhost:9000/avatars/avatars/"))
	assert.Contains(t, up.UploadURL, "X-Amz-Signature=")
	assert.Equal(t, "http://localhost:9000/avatars/"+up.ObjectKey, up.AvatarURL)

	_, err = u.PresignAvatar(ctx, userID, "image/gif")
	requireAppError(t, err, apperrors.KindBadRequest, "")
}
