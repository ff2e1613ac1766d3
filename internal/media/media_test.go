package media

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		path     string
		wantName string
		wantExt  string
	}{
		{"/tmp/photo.png", "photo", "png"},
		{"photo.final.JPG", "photo.final", "JPG"},
		{"noext", "noext", ""},
		{"/a/b/.png", ".png", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			name, ext := Split(tt.path)
			if name != tt.wantName || ext != tt.wantExt {
				t.Errorf("Split(%q) = (%q, %q), want (%q, %q)", tt.path, name, ext, tt.wantName, tt.wantExt)
			}
		})
	}
}

func TestEncodedName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/home/user/cat.png", "cat_encoded.png"},
		{"dog.jpeg", "dog_encoded.jpeg"},
		{"raw", "raw_encoded"},
	}

	for _, tt := range tests {
		if got := EncodedName(tt.path); got != tt.want {
			t.Errorf("EncodedName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestEncodedPath(t *testing.T) {
	if got := EncodedPath("", "/x/cat.png"); got != "cat_encoded.png" {
		t.Errorf("EncodedPath with empty dir = %q, want cat_encoded.png", got)
	}
	want := filepath.Join("out", "cat_encoded.png")
	if got := EncodedPath("out", "/x/cat.png"); got != want {
		t.Errorf("EncodedPath = %q, want %q", got, want)
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"a.png", "image/png", false},
		{"a.JPG", "image/jpeg", false},
		{"a.jpeg", "image/jpeg", false},
		{"a.avif", "image/avif", false},
		{"a", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := ContentType(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ContentType(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ContentType(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestIsImage(t *testing.T) {
	if !IsImage("x.PNG") {
		t.Error("IsImage(x.PNG) = false, want true")
	}
	if IsImage("x.mp4") {
		t.Error("IsImage(x.mp4) = true, want false")
	}
}

func TestSHA256(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := SHA256(path)
	if err != nil {
		t.Fatalf("SHA256: %v", err)
	}
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Errorf("SHA256 = %s, want %s", got, want)
	}

	if _, err := SHA256(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("SHA256 of missing file should fail")
	}
}
