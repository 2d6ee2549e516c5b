package asset

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusUploading, StatusCompleted, true},
		{StatusUploading, StatusFailed, true},
		{StatusUploading, StatusUploading, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
		{StatusCompleted, StatusUploading, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusUploading.Valid())
	assert.True(t, StatusFailed.Valid())
	assert.False(t, Status("processing").Valid())
	assert.False(t, StatusUploading.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
}

func TestBuildStorageKey(t *testing.T) {
	id := uuid.MustParse("6f1c1c1e-8f6a-4c55-9a57-3b8b6f0f2a10")

	assert.Equal(t, "uploads/6f1c1c1e-8f6a-4c55-9a57-3b8b6f0f2a10/clip.mp4", BuildStorageKey(id, "clip.mp4"))
	assert.Equal(t, "uploads/6f1c1c1e-8f6a-4c55-9a57-3b8b6f0f2a10/clip.mp4", BuildStorageKey(id, "../../clip.mp4"))
	assert.Equal(t, "uploads/6f1c1c1e-8f6a-4c55-9a57-3b8b6f0f2a10/clip.mp4", BuildStorageKey(id, `C:\videos\clip.mp4`))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "", SanitizeFilename(".."))
	assert.Equal(t, "", SanitizeFilename("/"))
	assert.Equal(t, "a b.mov", SanitizeFilename(" a b.mov "))
}
