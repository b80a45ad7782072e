package model

import (
	"testing"
	"time"
)

func TestVideoStatus_Valid(t *testing.T) {
	tests := []struct {
		status VideoStatus
		want   bool
	}{
		{StatusLive, true},
		{StatusDeleted, true},
		{StatusPrivate, true},
		{StatusUnavailable, true},
		{VideoStatus("gone"), false},
		{VideoStatus(""), false},
	}

	for _, tt := range tests {
		if got := tt.status.Valid(); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestVideo_UpdateStatus(t *testing.T) {
	now := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

	t.Run("records one history entry per transition", func(t *testing.T) {
		v := &Video{VideoID: "abc", Status: StatusLive}

		v.UpdateStatus(StatusDeleted, "Status detected during update", now)

		if v.Status != StatusDeleted {
			t.Errorf("Status = %q, want %q", v.Status, StatusDeleted)
		}
		if len(v.StatusHistory) != 1 {
			t.Fatalf("len(StatusHistory) = %d, want 1", len(v.StatusHistory))
		}
		entry := v.StatusHistory[0]
		if entry.OldStatus != StatusLive || entry.NewStatus != StatusDeleted {
			t.Errorf("entry = %q -> %q, want %q -> %q", entry.OldStatus, entry.NewStatus, StatusLive, StatusDeleted)
		}
		if entry.Note != "Status detected during update" {
			t.Errorf("Note = %q", entry.Note)
		}
		if !v.LastModified.Equal(now) {
			t.Errorf("LastModified = %v, want %v", v.LastModified, now)
		}
	})

	t.Run("same-status transition is a no-op", func(t *testing.T) {
		v := &Video{VideoID: "abc", Status: StatusLive}

		v.UpdateStatus(StatusLive, "", now)

		if len(v.StatusHistory) != 0 {
			t.Errorf("len(StatusHistory) = %d, want 0", len(v.StatusHistory))
		}
		if !v.LastModified.IsZero() {
			t.Errorf("LastModified = %v, want zero", v.LastModified)
		}
	})

	t.Run("successive transitions accumulate in order", func(t *testing.T) {
		v := &Video{VideoID: "abc", Status: StatusLive}

		v.UpdateStatus(StatusPrivate, "", now)
		v.UpdateStatus(StatusLive, "", now.Add(time.Hour))

		if len(v.StatusHistory) != 2 {
			t.Fatalf("len(StatusHistory) = %d, want 2", len(v.StatusHistory))
		}
		if v.StatusHistory[1].OldStatus != StatusPrivate || v.StatusHistory[1].NewStatus != StatusLive {
			t.Errorf("second entry = %q -> %q", v.StatusHistory[1].OldStatus, v.StatusHistory[1].NewStatus)
		}
	})
}

func TestPlaylistVersion_Empty(t *testing.T) {
	tests := []struct {
		name    string
		version PlaylistVersion
		want    bool
	}{
		{"no changes", PlaylistVersion{Version: 1}, true},
		{"added", PlaylistVersion{Added: []string{"a"}}, false},
		{"removed", PlaylistVersion{Removed: []string{"a"}}, false},
		{"status changed", PlaylistVersion{StatusChanges: []StatusChangeRecord{{VideoID: "a"}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.version.Empty(); got != tt.want {
				t.Errorf("Empty() = %v, want %v", got, tt.want)
			}
		})
	}
}
