package storage

import "testing"

func TestExtensionAllowed(t *testing.T) {
	tests := []struct {
		folder string
		ext    string
		want   bool
	}{
		{FolderAvatars, "png", true},
		{FolderAvatars, "pdf", false},
		{FolderHomework, "pdf", true},
		{FolderHomework, "exe", false},
		{FolderChat, "jpg", true},
		{"unknown-folder", "jpg", false},
	}
	for _, tt := range tests {
		if got := extensionAllowed(tt.folder, tt.ext); got != tt.want {
			t.Errorf("extensionAllowed(%q, %q) = %v, want %v", tt.folder, tt.ext, got, tt.want)
		}
	}
}

func TestFileExtension(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"photo.PNG", "png"},
		{"archive.tar.gz", "gz"},
		{"noext", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := fileExtension(tt.filename); got != tt.want {
			t.Errorf("fileExtension(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestExtractKeyFromURL(t *testing.T) {
	url := "https://edumesh-storage.s3.ap-south-1.amazonaws.com/schools/1/avatars/2026/01/5-abcd.png"
	want := "schools/1/avatars/2026/01/5-abcd.png"
	if got := extractKeyFromURL(url); got != want {
		t.Errorf("extractKeyFromURL() = %q, want %q", got, want)
	}
	if got := extractKeyFromURL("https://example.com/file.png"); got != "" {
		t.Errorf("expected empty key for foreign URL, got %q", got)
	}
}
