package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPinterestSavesFirstImage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pin/42/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.UserAgent(), "Mozilla") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `<html><body><img alt="logo"><img src="/originals/ab/cd/photo.jpg?w=736"><img src="/second.jpg"></body></html>`)
	})
	mux.HandleFunc("/originals/ab/cd/photo.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	p := NewPinterestProcessor(dir, srv.Client())

	if err := p.Process(context.Background(), srv.URL+"/pin/42/"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "photo.jpg"))
	if err != nil {
		t.Fatalf("image not saved: %v", err)
	}
	if string(raw) != "jpeg-bytes" {
		t.Errorf("image = %q", raw)
	}
}

func TestPinterestWithoutImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>nothing</p></body></html>`)
	}))
	defer srv.Close()

	p := NewPinterestProcessor(t.TempDir(), srv.Client())
	if err := p.Process(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for page without image")
	}
}

func TestFirstImageSrc(t *testing.T) {
	src, err := firstImageSrc(strings.NewReader(`<div><IMG SRC="a.png"/></div>`))
	if err != nil || src != "a.png" {
		t.Errorf("firstImageSrc = %q, %v", src, err)
	}
}

const wbCardJSON = `{
	"imt_name": "Кружка: \"Кот\"",
	"media": {"photo_count": 2},
	"grouped_options": [
		{"group_name": "Основная информация", "options": [{"name": "Цвет", "value": " белый "}]}
	],
	"description": " Большая кружка "
}`

func newWildberriesServer(t *testing.T, host int, id string) *httptest.Server {
	t.Helper()
	prefix := fmt.Sprintf("/h%02d/vol123/part12345/%s", host, id)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case prefix + "/info/ru/card.json":
			w.Write([]byte(wbCardJSON))
		case prefix + "/images/big/1.webp":
			w.Write([]byte("img1"))
		case prefix + "/images/big/2.webp":
			w.Write([]byte("img2"))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestWildberriesDownloadsProduct(t *testing.T) {
	srv := newWildberriesServer(t, 3, "12345678")
	defer srv.Close()

	dir := t.TempDir()
	p := NewWildberriesProcessor(dir, srv.Client())
	p.basket = func(n int) string { return fmt.Sprintf("%s/h%02d", srv.URL, n) }

	if err := p.Process(context.Background(), "https://www.wildberries.ru/catalog/12345678/detail.aspx"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	folder := filepath.Join(dir, "Кружка Кот")
	for i, want := range []string{"img1", "img2"} {
		raw, err := os.ReadFile(filepath.Join(folder, fmt.Sprintf("%d.webp", i+1)))
		if err != nil || string(raw) != want {
			t.Errorf("image %d = %q, %v", i+1, raw, err)
		}
	}

	info, err := os.ReadFile(filepath.Join(folder, "info.txt"))
	if err != nil {
		t.Fatalf("info.txt: %v", err)
	}
	want := "Основная информация\nЦвет - белый\n\nDescription\nБольшая кружка"
	if string(info) != want {
		t.Errorf("info.txt = %q, want %q", info, want)
	}
}

func TestWildberriesCardMissing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p := NewWildberriesProcessor(t.TempDir(), srv.Client())
	p.basket = func(n int) string { return srv.URL }

	if err := p.Process(context.Background(), "https://www.wildberries.ru/catalog/12345678/detail.aspx"); err == nil {
		t.Fatal("expected error when no host serves the card")
	}
}

func TestWildberriesRequiresProductID(t *testing.T) {
	p := NewWildberriesProcessor(t.TempDir(), http.DefaultClient)
	if err := p.Process(context.Background(), "https://www.wildberries.ru/brands/foo"); err == nil {
		t.Fatal("expected error for link without product id")
	}
}

func TestSanitizeName(t *testing.T) {
	if got := sanitizeName(` a/b\c:d*e?f"g<h>i|j `); got != "abcdefghij" {
		t.Errorf("sanitizeName = %q", got)
	}
}
