package ytpl

import (
	"strings"
	"testing"
	"time"

	"ytpl/internal/model"
)

func TestBuildItemMetadata(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	views := int64(12345)
	video := &model.Video{
		VideoID:     "vid1",
		Title:       "A Video",
		Channel:     "Some Channel",
		ChannelID:   "chan1",
		UploadDate:  "20230115",
		Duration:    3725,
		Description: "original text",
		ViewCount:   &views,
		Tags:        []string{"music", "live"},
		Categories:  []string{"Entertainment"},
		Status:      model.StatusDeleted,
		WebpageURL:  "https://www.youtube.com/watch?v=vid1",
	}
	playlist := &model.Playlist{PlaylistID: "pl-1", Title: "My Playlist", Channel: "Some Channel"}

	md := BuildItemMetadata(video, playlist, now)

	want := map[string]string{
		"mediatype":           "movies",
		"collection":          "opensource_movies",
		"title":               "A Video",
		"creator":             "Some Channel",
		"language":            "eng",
		"originalurl":         "https://www.youtube.com/watch?v=vid1",
		"date":                "2023-01-15",
		"runtime":             "01:02:05",
		"youtube_video_id":    "vid1",
		"youtube_channel":     "Some Channel",
		"youtube_channel_id":  "chan1",
		"youtube_upload_date": "20230115",
		"youtube_view_count":  "12345",
		"archived_reason":     "deleted",
	}
	for k, v := range want {
		if md[k] != v {
			t.Errorf("md[%q] = %q, want %q", k, md[k], v)
		}
	}

	if md["archived_date"] != now.Format(time.RFC3339) {
		t.Errorf("archived_date = %q", md["archived_date"])
	}

	subjects := strings.Split(md["subject"], ";")
	wantSubjects := []string{"youtube", "video", "archived", "music", "live", "Entertainment", "deleted"}
	if len(subjects) != len(wantSubjects) {
		t.Fatalf("subjects = %v, want %v", subjects, wantSubjects)
	}
	for i, s := range wantSubjects {
		if subjects[i] != s {
			t.Errorf("subject[%d] = %q, want %q", i, subjects[i], s)
		}
	}

	desc := md["description"]
	for _, fragment := range []string{
		"=== Original YouTube Description ===",
		"original text",
		"=== Archival Information ===",
		"Original Channel: Some Channel",
		"Status at Archive Time: deleted",
		"Playlist: My Playlist",
		"Views: 12345",
		"This video was archived for preservation purposes using ytpl.",
	} {
		if !strings.Contains(desc, fragment) {
			t.Errorf("description missing %q", fragment)
		}
	}

	if _, ok := md["youtube_like_count"]; ok {
		t.Error("youtube_like_count should be absent when LikeCount is nil")
	}
}

func TestBuildItemMetadata_Fallbacks(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	video := &model.Video{VideoID: "vid1", Status: model.StatusLive}
	playlist := &model.Playlist{PlaylistID: "pl-1", Title: "PL"}

	md := BuildItemMetadata(video, playlist, now)

	if md["title"] != "Untitled" {
		t.Errorf("title = %q, want Untitled", md["title"])
	}
	if md["creator"] != "Unknown" {
		t.Errorf("creator = %q, want Unknown", md["creator"])
	}
	if md["originalurl"] != "https://youtube.com/watch?v=vid1" {
		t.Errorf("originalurl = %q", md["originalurl"])
	}
	if md["archived_reason"] != "user_request" {
		t.Errorf("archived_reason = %q, want user_request", md["archived_reason"])
	}
	if _, ok := md["date"]; ok {
		t.Error("date should be absent without an upload date")
	}
	if _, ok := md["runtime"]; ok {
		t.Error("runtime should be absent without a duration")
	}
}

func TestSubjectTags_CapsAndDedupes(t *testing.T) {
	video := &model.Video{
		VideoID: "vid1",
		Status:  model.StatusLive,
		Tags: []string{
			"t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8", "t9", "t10",
			"t11", "t12",
		},
		Categories: []string{"t1", "Music"},
	}

	tags := subjectTags(video)

	for _, tag := range tags {
		if tag == "t11" || tag == "t12" {
			t.Errorf("tag %q exceeds the per-video tag cap", tag)
		}
	}

	seen := make(map[string]int)
	for _, tag := range tags {
		seen[tag]++
	}
	if seen["t1"] != 1 {
		t.Errorf("t1 appears %d times, want 1", seen["t1"])
	}
	if seen["Music"] != 1 {
		t.Error("category missing from tags")
	}
}

func TestNormalizeUploadDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"20230115", "2023-01-15"},
		{"2023-01-15", "2023-01-15"},
		{"unknown", "unknown"},
	}

	for _, tt := range tests {
		if got := normalizeUploadDate(tt.in); got != tt.want {
			t.Errorf("normalizeUploadDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatRuntime(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{59, "00:00:59"},
		{61, "00:01:01"},
		{3725, "01:02:05"},
	}

	for _, tt := range tests {
		if got := formatRuntime(tt.seconds); got != tt.want {
			t.Errorf("formatRuntime(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
