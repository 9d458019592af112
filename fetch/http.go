package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

// errStatus is returned for non-200 responses
type errStatus struct {
	url  string
	code int
}

func (e *errStatus) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.url, e.code)
}

func get(ctx context.Context, client *http.Client, link string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &errStatus{url: link, code: resp.StatusCode}
	}
	return resp, nil
}

// downloadFile streams link into path, removing a partial file on failure
func downloadFile(ctx context.Context, client *http.Client, link, path string) error {
	resp, err := get(ctx, client, link)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
