package fetch

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Folders are the destination directories under the downloads root
type Folders struct {
	Videos      string
	Playlists   string
	Pictures    string
	Wildberries string
}

// NewFolders lays out the destination tree under root
func NewFolders(root string) Folders {
	return Folders{
		Videos:      filepath.Join(root, "Videos"),
		Playlists:   filepath.Join(root, "Videos", "Playlist Videos"),
		Pictures:    filepath.Join(root, "Pictures"),
		Wildberries: filepath.Join(root, "Pictures", "Wildberries"),
	}
}

// All returns every folder
func (f Folders) All() []string {
	return []string{f.Videos, f.Playlists, f.Pictures, f.Wildberries}
}

// EnsureDirs creates every destination folder
func (f Folders) EnsureDirs() error {
	for _, dir := range f.All() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// NewDefaultRegistry wires the built-in processors in priority order.
// client is used for the scraping processors; nil means a client with a
// 30 second timeout.
func NewDefaultRegistry(f Folders, client *http.Client) *Registry {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	r := NewRegistry()
	r.Register(NewPlaylistProcessor(f.Playlists, nil))
	r.Register(NewVideoProcessor(f.Videos, nil))
	r.Register(NewPinterestProcessor(f.Pictures, client))
	r.Register(NewWildberriesProcessor(f.Wildberries, client))
	return r
}
