package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

var errNoImage = errors.New("no image found on page")

// PinterestProcessor saves the first image of a Pinterest page
type PinterestProcessor struct {
	dir    string
	client *http.Client
}

// NewPinterestProcessor creates the Pinterest processor
func NewPinterestProcessor(dir string, client *http.Client) *PinterestProcessor {
	return &PinterestProcessor{dir: dir, client: client}
}

func (p *PinterestProcessor) Name() string { return "pinterest" }

func (p *PinterestProcessor) TargetDir() string { return p.dir }

// Match accepts pinterest.com and its country domains such as pinterest.de
func (p *PinterestProcessor) Match(link string) bool {
	return strings.Contains(hostname(link), "pinterest.")
}

func (p *PinterestProcessor) Process(ctx context.Context, link string) error {
	resp, err := get(ctx, p.client, link)
	if err != nil {
		return fmt.Errorf("fetch page: %w", err)
	}
	src, err := firstImageSrc(resp.Body)
	resp.Body.Close()
	if err != nil {
		return err
	}

	imgURL, err := resolve(link, src)
	if err != nil {
		return fmt.Errorf("image url %q: %w", src, err)
	}

	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", p.dir, err)
	}
	dest := filepath.Join(p.dir, imageName(imgURL))

	slog.Info("Downloading image", "url", imgURL.String(), "file", dest)
	if err := downloadFile(ctx, p.client, imgURL.String(), dest); err != nil {
		return fmt.Errorf("download image: %w", err)
	}
	slog.Info("Image saved", "file", dest)
	return nil
}

// firstImageSrc returns the src of the first <img> element with one
func firstImageSrc(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return "", errNoImage
			}
			return "", fmt.Errorf("parse page: %w", z.Err())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "img" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "src" && len(val) > 0 {
					return string(val), nil
				}
				if !more {
					break
				}
			}
		}
	}
}

func resolve(base, ref string) (*url.URL, error) {
	b, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	return b.ResolveReference(r), nil
}

// imageName is the last path segment of u, without the query string
func imageName(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "pinterest-image.jpg"
	}
	return sanitizeName(name)
}
