package genai

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

// renderSynthetic draws a deterministic placeholder for req: the same prompt,
// preset and seed always produce the same bytes.
func renderSynthetic(req GenerateRequest) Image {
	size := 512
	if req.Quality == "final" {
		size = 1024
	}
	preset, _ := ResolveStyle(req.StylePreset)

	h := sha256.New()
	h.Write([]byte(req.Prompt))
	h.Write([]byte{'|'})
	h.Write([]byte(preset))
	h.Write([]byte{'|'})
	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], uint64(req.Seed))
	h.Write(seed[:])
	sum := h.Sum(nil)

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	base := color.RGBA{R: sum[0], G: sum[1], B: sum[2], A: 255}
	accent := color.RGBA{R: sum[3], G: sum[4], B: sum[5], A: 255}
	diagonal := color.RGBA{R: sum[6], G: sum[7], B: sum[8], A: 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: base}, image.Point{}, draw.Src)

	stripe := size / 12
	for y := 0; y < size; y += stripe * 2 {
		draw.Draw(img, image.Rect(0, y, size, min(size, y+stripe)), &image.Uniform{C: accent}, image.Point{}, draw.Over)
	}
	step := max(16, size/32)
	for x := 0; x < size; x += step {
		for y := 0; x+y < size; y++ {
			img.Set(x+y, y, diagonal)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Image{}
	}
	return Image{Data: buf.Bytes(), MIMEType: "image/png"}
}
