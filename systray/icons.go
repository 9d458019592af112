package systray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"runtime"
	"sync"

	"markestedt/linkgrab/status"
)

const iconSize = 32

var stateColors = map[status.State]color.NRGBA{
	status.Resting:     {R: 0x4a, G: 0x78, B: 0xc2, A: 0xff},
	status.Flashed:     {R: 0x3c, G: 0xb3, B: 0x71, A: 0xff},
	status.Downloading: {R: 0xf0, G: 0xa2, B: 0x1c, A: 0xff},
}

var (
	iconMu    sync.Mutex
	iconCache = map[status.State][]byte{}
)

// Icon returns the tray image for s, ICO on Windows and PNG elsewhere
func Icon(s status.State) []byte {
	iconMu.Lock()
	defer iconMu.Unlock()

	if data, ok := iconCache[s]; ok {
		return data
	}

	c, ok := stateColors[s]
	if !ok {
		c = stateColors[status.Resting]
	}
	data, err := renderIcon(c, runtime.GOOS == "windows")
	if err != nil {
		slog.Error("Failed to render tray icon", "state", s.String(), "error", err)
		return nil
	}
	iconCache[s] = data
	return data
}

// renderIcon draws a filled disc with a down arrow cut out of it
func renderIcon(c color.NRGBA, ico bool) ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	const r = iconSize/2 - 1
	cx, cy := iconSize/2, iconSize/2

	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy > r*r {
				continue
			}
			if inArrow(x, y) {
				img.SetNRGBA(x, y, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
				continue
			}
			img.SetNRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	if !ico {
		return buf.Bytes(), nil
	}
	return wrapICO(buf.Bytes(), iconSize), nil
}

// inArrow reports whether (x, y) lies in the arrow glyph
func inArrow(x, y int) bool {
	mid := iconSize / 2
	// shaft
	if y >= 7 && y < 18 && x >= mid-2 && x < mid+2 {
		return true
	}
	// head
	if y >= 16 && y < 24 {
		half := 23 - y
		return x >= mid-half-1 && x <= mid+half
	}
	return false
}

// wrapICO packs a PNG image into a single-entry ICO container
func wrapICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	// ICONDIR
	binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	dim := byte(size)
	if size >= 256 {
		dim = 0
	}
	buf.Write([]byte{dim, dim, 0, 0})
	binary.Write(&buf, binary.LittleEndian, uint16(1))  // planes
	binary.Write(&buf, binary.LittleEndian, uint16(32)) // bits per pixel
	binary.Write(&buf, binary.LittleEndian, uint32(len(pngData)))
	binary.Write(&buf, binary.LittleEndian, uint32(6+16))
	buf.Write(pngData)
	return buf.Bytes()
}
