package models

import (
	"errors"
	"math"
	"testing"
)

func TestCanTransitionStatus(t *testing.T) {
	cases := []struct {
		from, to VideoStatus
		want     bool
	}{
		{VideoStatusPending, VideoStatusCompressing, true},
		{VideoStatusCompressing, VideoStatusUploading, true},
		{VideoStatusUploading, VideoStatusCompleted, true},
		{VideoStatusPending, VideoStatusCompleted, true},
		{VideoStatusUploading, VideoStatusCompressing, false},
		{VideoStatusCompleted, VideoStatusPending, false},
		{VideoStatusUploading, VideoStatusFailed, true},
		{VideoStatusCompleted, VideoStatusFailed, false},
		{VideoStatusFailed, VideoStatusUploading, false},
		{VideoStatusFailed, VideoStatusPending, true},
	}

	for _, tc := range cases {
		if got := CanTransitionStatus(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransitionStatus(%s, %s) = %v want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCompressionRatio(t *testing.T) {
	v := VideoRecord{OriginalSize: 50_000_000, CompressedSize: 20_000_000}
	if got := v.CompressionRatio(); math.Abs(got-60) > 0.001 {
		t.Fatalf("expected ratio 60 got %v", got)
	}

	if got := (VideoRecord{CompressedSize: 10}).CompressionRatio(); got != 0 {
		t.Fatalf("expected zero ratio without original size got %v", got)
	}

	grown := VideoRecord{OriginalSize: 100, CompressedSize: 120}
	if got := grown.CompressionRatio(); got >= 0 {
		t.Fatalf("expected negative ratio when output grew got %v", got)
	}
}

func TestValidateCompletedRequiresRemoteFile(t *testing.T) {
	v := VideoRecord{OwnerID: "user-1", Status: VideoStatusCompleted}
	if err := v.Validate(); !errors.Is(err, ErrMissingRemoteFile) {
		t.Fatalf("expected ErrMissingRemoteFile got %v", err)
	}

	v.RemoteFileID = "drv-file"
	if err := v.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsUnknownStatus(t *testing.T) {
	v := VideoRecord{OwnerID: "user-1", Status: "archived"}
	if err := v.Validate(); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}

	v.Status = VideoStatusFailed
	if err := v.Validate(); err != nil {
		t.Fatalf("unexpected error for failed status: %v", err)
	}
}

func TestInFolder(t *testing.T) {
	a, b := "a", "b"
	if !(VideoRecord{}).InFolder(nil) {
		t.Fatal("root video should be in root")
	}
	if (VideoRecord{FolderID: &a}).InFolder(nil) {
		t.Fatal("foldered video should not be in root")
	}
	if (VideoRecord{FolderID: &a}).InFolder(&b) {
		t.Fatal("video in a should not be in b")
	}
	if !(VideoRecord{FolderID: &a}).InFolder(&a) {
		t.Fatal("video should be in its own folder")
	}
}
