package service

import (
	"bytes"
	"context"
	"image"
	"testing"

	"grapevine/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageService_Process(t *testing.T) {
	store := newMemStore()
	svc := NewImageService(store)

	ref, err := svc.Process(context.Background(), testutil.TinyPNG(t, 40, 30))
	require.NoError(t, err)
	require.NotEmpty(t, ref)

	stored, ok := store.objects[ref]
	require.True(t, ok, "processed image should land in the store")

	decoded, format, err := image.Decode(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, "webp", format)
	assert.Equal(t, 40, decoded.Bounds().Dx())
	assert.Equal(t, 30, decoded.Bounds().Dy())
}

func TestImageService_Process_AcceptsJPEG(t *testing.T) {
	store := newMemStore()
	svc := NewImageService(store)

	ref, err := svc.Process(context.Background(), testutil.TinyJPEG(t, 20, 20))
	require.NoError(t, err)

	_, format, err := image.Decode(bytes.NewReader(store.objects[ref]))
	require.NoError(t, err)
	assert.Equal(t, "webp", format)
}

func TestImageService_Process_DownscalesLargeImages(t *testing.T) {
	store := newMemStore()
	svc := NewImageService(store)

	ref, err := svc.Process(context.Background(), testutil.TinyJPEG(t, 3200, 800))
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(store.objects[ref]))
	require.NoError(t, err)
	assert.Equal(t, 1600, decoded.Bounds().Dx())
	assert.Equal(t, 400, decoded.Bounds().Dy())
}

func TestImageService_Process_RejectsBadInput(t *testing.T) {
	svc := testImageService()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "corrupt", data: []byte("definitely not an image")},
		{name: "oversized", data: make([]byte, maxImageBytes+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Process(context.Background(), tt.data)
			assertValidationError(t, err)
		})
	}
}

func TestImageService_Remove(t *testing.T) {
	store := newMemStore()
	svc := NewImageService(store)

	ref, err := svc.Process(context.Background(), testutil.TinyPNG(t, 8, 8))
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), ref))
	_, ok := store.objects[ref]
	assert.False(t, ok)
}

func TestImageService_URLFor(t *testing.T) {
	svc := NewImageService(newMemStore())

	assert.Equal(t, "http://test/uploads/avatar.webp", svc.URLFor("avatar.webp"))
	assert.Equal(t, "", svc.URLFor(""))
}
