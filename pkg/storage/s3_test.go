package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Payphone-Digital/accounts/config"
	"github.com/Payphone-Digital/accounts/pkg/circuit"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeObjectAPI struct {
	putErr    error
	deleteErr error
	puts      map[string][]byte
	types     map[string]string
	deleted   []string
}

func newFakeObjectAPI() *fakeObjectAPI {
	return &fakeObjectAPI{puts: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjectAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts[*in.Key] = body
	f.types[*in.Key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectAPI) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func tempUpload(t *testing.T, content string) File {
	t.Helper()
	p := filepath.Join(t.TempDir(), "upload-123")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return File{Path: p, Filename: "Avatar.PNG", ContentType: "image/png", Size: int64(len(content))}
}

func testStorageConfig() config.StorageConfig {
	return config.StorageConfig{
		Bucket:        "media",
		Region:        "us-east-1",
		PublicBaseURL: "https://cdn.example.com/",
		KeyPrefix:     "/users/",
	}
}

func TestS3Uploader_UploadSuccess(t *testing.T) {
	api := newFakeObjectAPI()
	var observed []error
	u := NewS3Uploader(api, testStorageConfig(), nil, func(err error, _ time.Duration) { observed = append(observed, err) })
	u.newKeyID = func() string { return "fixed" }

	file := tempUpload(t, "png-bytes")
	res, err := u.Upload(context.Background(), file)
	require.NoError(t, err)

	assert.Equal(t, "users/fixed.png", res.Key)
	assert.Equal(t, "https://cdn.example.com/users/fixed.png", res.URL)
	assert.Equal(t, []byte("png-bytes"), api.puts["users/fixed.png"])
	assert.Equal(t, "image/png", api.types["users/fixed.png"])
	assert.Equal(t, []error{nil}, observed)

	_, statErr := os.Stat(file.Path)
	assert.True(t, os.IsNotExist(statErr), "temp file must be removed after upload")

	key, ok := u.KeyFromURL(res.URL)
	assert.True(t, ok)
	assert.Equal(t, "users/fixed.png", key)
}

func TestS3Uploader_UploadFailureRemovesTempFile(t *testing.T) {
	api := newFakeObjectAPI()
	api.putErr = errors.New("access denied")
	u := NewS3Uploader(api, testStorageConfig(), nil, nil)

	file := tempUpload(t, "data")
	_, err := u.Upload(context.Background(), file)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.putErr)

	_, statErr := os.Stat(file.Path)
	assert.True(t, os.IsNotExist(statErr), "temp file must be removed after a failed upload")
}

func TestS3Uploader_BreakerFailsFast(t *testing.T) {
	api := newFakeObjectAPI()
	api.putErr = errors.New("503 slow down")
	breaker := circuit.NewBreaker("media-upload", circuit.Config{FailureThreshold: 1, Cooldown: time.Hour}, zap.NewNop())
	u := NewS3Uploader(api, testStorageConfig(), breaker, nil)

	_, err := u.Upload(context.Background(), tempUpload(t, "a"))
	require.Error(t, err)

	_, err = u.Upload(context.Background(), tempUpload(t, "b"))
	assert.ErrorIs(t, err, circuit.ErrCircuitOpen)
}

func TestS3Uploader_Delete(t *testing.T) {
	api := newFakeObjectAPI()
	u := NewS3Uploader(api, testStorageConfig(), nil, nil)

	require.NoError(t, u.Delete(context.Background(), "users/a.png"))
	require.NoError(t, u.Delete(context.Background(), ""))
	assert.Equal(t, []string{"users/a.png"}, api.deleted)
}

func TestS3Uploader_EmptyPath(t *testing.T) {
	u := NewS3Uploader(newFakeObjectAPI(), testStorageConfig(), nil, nil)
	_, err := u.Upload(context.Background(), File{})
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestPublicBaseURL(t *testing.T) {
	assert.Equal(t, "https://media.s3.eu-west-1.amazonaws.com",
		publicBaseURL(config.StorageConfig{Bucket: "media", Region: "eu-west-1"}))
	assert.Equal(t, "http://localhost:9000/media",
		publicBaseURL(config.StorageConfig{Bucket: "media", Endpoint: "http://localhost:9000/"}))
}
