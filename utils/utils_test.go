package utils_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/Skryldev/image-util/utils"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "jpeg"},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0}, "png"},
		{"truncated png", []byte{0x89, 'P', 'N', 'G'}, "unknown"},
		{"gif", []byte("GIF89a"), "gif"},
		{"bmp", []byte("BM\x00\x00"), "bmp"},
		{"empty", nil, "unknown"},
		{"text", []byte("hello"), "unknown"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := utils.DetectFormat(tc.data); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDrainReader_Limited(t *testing.T) {
	data := bytes.Repeat([]byte{1}, 100)

	buf, err := utils.DrainReader(context.Background(), &utils.LimitedReader{R: bytes.NewReader(data), Max: 100}, 7)
	if err != nil {
		t.Fatalf("exact limit: %v", err)
	}
	if buf.Len() != 100 {
		t.Errorf("got %d bytes", buf.Len())
	}
	utils.ReleaseBuffer(buf)

	_, err = utils.DrainReader(context.Background(), &utils.LimitedReader{R: bytes.NewReader(data), Max: 99}, 7)
	if !errors.Is(err, utils.ErrLimitExceeded) {
		t.Errorf("over limit: got %v", err)
	}
}

func TestDrainReader_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := utils.DrainReader(ctx, bytes.NewReader([]byte{1}), 0); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v", err)
	}
}
