package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFile_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linkgrab", "config.toml")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.AddHotkey() != DefaultAddHotkey {
		t.Errorf("AddHotkey() = %q, want %q", cfg.AddHotkey(), DefaultAddHotkey)
	}
	if cfg.DownloadHotkey() != DefaultDownloadHotkey {
		t.Errorf("DownloadHotkey() = %q, want %q", cfg.DownloadHotkey(), DefaultDownloadHotkey)
	}
	if cfg.Paths.DataDir != filepath.Dir(path) {
		t.Errorf("DataDir = %q, want %q", cfg.Paths.DataDir, filepath.Dir(path))
	}
	if cfg.Capture.Attempts != 3 || cfg.Capture.TimeoutMs != 3000 {
		t.Errorf("Capture = %+v, want attempts 3 timeout 3000", cfg.Capture)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file was not created: %v", err)
	}
}

func TestLoadFile_ReadsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[hotkeys]
add_hotkey = "alt+k"

[web]
enabled = true
port = 9000
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.AddHotkey() != "alt+k" {
		t.Errorf("AddHotkey() = %q, want %q", cfg.AddHotkey(), "alt+k")
	}
	// Missing keys fall back to defaults
	if cfg.DownloadHotkey() != DefaultDownloadHotkey {
		t.Errorf("DownloadHotkey() = %q, want %q", cfg.DownloadHotkey(), DefaultDownloadHotkey)
	}
	if !cfg.Web.Enabled || cfg.Web.Port != 9000 {
		t.Errorf("Web = %+v, want enabled on 9000", cfg.Web)
	}
}

func TestLoadFile_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[hotkeys\nadd_hotkey="), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Fatal("LoadFile() expected error for malformed file")
	}
}

func TestSetAddHotkey_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := cfg.SetAddHotkey("ctrl+alt+l"); err != nil {
		t.Fatalf("SetAddHotkey() error = %v", err)
	}

	reloaded, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.AddHotkey() != "ctrl+alt+l" {
		t.Errorf("reloaded AddHotkey() = %q, want %q", reloaded.AddHotkey(), "ctrl+alt+l")
	}
	if reloaded.DownloadHotkey() != DefaultDownloadHotkey {
		t.Errorf("reloaded DownloadHotkey() = %q, want %q", reloaded.DownloadHotkey(), DefaultDownloadHotkey)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/Videos", filepath.Join(home, "Videos")},
		{"/abs/path", "/abs/path"},
		{"~user/x", "~user/x"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ExpandPath(tt.in); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultDownloadsDir(t *testing.T) {
	if got := DefaultDownloadsDir(); !strings.HasSuffix(got, filepath.Join("Downloads", "LinkGrab")) {
		t.Errorf("DefaultDownloadsDir() = %q, want suffix Downloads/LinkGrab", got)
	}
}
