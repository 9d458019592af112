package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var wbProductPattern = regexp.MustCompile(`/catalog/(\d+)/`)

const wbBasketHosts = 100

// wbCard is the part of card.json the processor reads
type wbCard struct {
	ImtName string `json:"imt_name"`
	Media   struct {
		PhotoCount int `json:"photo_count"`
	} `json:"media"`
	GroupedOptions []struct {
		GroupName string `json:"group_name"`
		Options   []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"options"`
	} `json:"grouped_options"`
	Description string `json:"description"`
}

// WildberriesProcessor downloads every product photo plus a text summary
type WildberriesProcessor struct {
	dir    string
	client *http.Client
	// basket returns the base URL of basket host n
	basket func(n int) string
}

// NewWildberriesProcessor creates the Wildberries processor
func NewWildberriesProcessor(dir string, client *http.Client) *WildberriesProcessor {
	return &WildberriesProcessor{
		dir:    dir,
		client: client,
		basket: func(n int) string {
			return fmt.Sprintf("https://basket-%02d.wbbasket.ru", n)
		},
	}
}

func (p *WildberriesProcessor) Name() string { return "wildberries" }

func (p *WildberriesProcessor) TargetDir() string { return p.dir }

func (p *WildberriesProcessor) Match(link string) bool {
	return strings.Contains(hostname(link), "wildberries.ru")
}

func (p *WildberriesProcessor) Process(ctx context.Context, link string) error {
	m := wbProductPattern.FindStringSubmatch(link)
	if m == nil {
		return fmt.Errorf("no product id in %s", link)
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return fmt.Errorf("product id %q: %w", m[1], err)
	}
	productPath := fmt.Sprintf("/vol%d/part%d/%d", id/100000, id/1000, id)

	card, base, err := p.findCard(ctx, productPath)
	if err != nil {
		return err
	}

	name := sanitizeName(card.ImtName)
	if name == "" {
		name = fmt.Sprintf("wb_%d", id)
	}
	folder := filepath.Join(p.dir, name)
	if err := os.MkdirAll(folder, 0755); err != nil {
		return fmt.Errorf("create %s: %w", folder, err)
	}

	count := card.Media.PhotoCount
	if count <= 0 {
		return fmt.Errorf("product %d has no photo count", id)
	}

	saved := 0
	for i := 1; i <= count; i++ {
		imgURL := fmt.Sprintf("%s%s/images/big/%d.webp", base, productPath, i)
		out := filepath.Join(folder, fmt.Sprintf("%d.webp", i))
		if err := downloadFile(ctx, p.client, imgURL, out); err != nil {
			slog.Error("Failed to download product image", "url", imgURL, "error", err)
			continue
		}
		saved++
	}
	slog.Info("Product images saved", "product", id, "saved", saved, "of", count, "folder", folder)

	if info := productInfo(card); info != "" {
		if err := os.WriteFile(filepath.Join(folder, "info.txt"), []byte(info), 0644); err != nil {
			slog.Error("Failed to save product description", "product", id, "error", err)
		}
	}

	if saved == 0 {
		return fmt.Errorf("none of %d images could be downloaded", count)
	}
	return nil
}

// findCard probes the basket hosts in order until one serves card.json
func (p *WildberriesProcessor) findCard(ctx context.Context, productPath string) (*wbCard, string, error) {
	for n := 0; n < wbBasketHosts; n++ {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		base := p.basket(n)
		resp, err := get(ctx, p.client, base+productPath+"/info/ru/card.json")
		if err != nil {
			var status *errStatus
			if !errors.As(err, &status) {
				slog.Debug("Basket host unreachable", "host", base, "error", err)
			}
			continue
		}

		var card wbCard
		err = json.NewDecoder(resp.Body).Decode(&card)
		resp.Body.Close()
		if err != nil {
			slog.Warn("Invalid product card", "host", base, "error", err)
			continue
		}
		return &card, base, nil
	}
	return nil, "", errors.New("product card not found on any basket host")
}

func productInfo(card *wbCard) string {
	var lines []string
	for _, group := range card.GroupedOptions {
		if group.GroupName != "" {
			lines = append(lines, group.GroupName)
		}
		for _, opt := range group.Options {
			name, value := strings.TrimSpace(opt.Name), strings.TrimSpace(opt.Value)
			if name != "" || value != "" {
				lines = append(lines, name+" - "+value)
			}
		}
		lines = append(lines, "")
	}
	if desc := strings.TrimSpace(card.Description); desc != "" {
		lines = append(lines, "Description", desc)
	}
	return strings.Join(lines, "\n")
}

// sanitizeName drops the characters Windows forbids in file names
func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`\/:*?"<>|`, r) || r < 0x20 {
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(name)
}
