package qrlabel

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/font"

	"github.com/tracebind/passport-backend/internal/platform/logger"
)

const (
	labelWidth  = 600
	labelHeight = 680
	qrSize      = 480
	qrTop       = 32
	captionGap  = 28
	uidGap      = 14
)

// Renderer composes the printable passport label: a QR code pointing at the
// public passport page, the product name, and the passport UID as a
// human-readable fallback.
type Renderer interface {
	RenderLabel(publicURL, productName, publicUID string) (bytes.Buffer, error)
}

type renderer struct {
	log         *logger.Logger
	captionFace font.Face
	uidFace     font.Face
}

func NewRenderer(log *logger.Logger) (Renderer, error) {
	serviceLog := log.With("service", "LabelRenderer")

	fontPath := os.Getenv("LABEL_FONT")
	if strings.TrimSpace(fontPath) == "" {
		return nil, fmt.Errorf("Env var LABEL_FONT is empty")
	}
	serviceLog.Info("Loading label font", "font", fontPath)

	captionFace, err := loadFontFace(fontPath, 30)
	if err != nil {
		return nil, fmt.Errorf("could not load label font: %w", err)
	}
	uidFace, err := loadFontFace(fontPath, 20)
	if err != nil {
		return nil, fmt.Errorf("could not load label font: %w", err)
	}

	return &renderer{
		log:         serviceLog,
		captionFace: captionFace,
		uidFace:     uidFace,
	}, nil
}

func (r *renderer) RenderLabel(publicURL, productName, publicUID string) (bytes.Buffer, error) {
	var buf bytes.Buffer

	publicURL = strings.TrimSpace(publicURL)
	if publicURL == "" {
		return buf, fmt.Errorf("public URL required")
	}

	qr, err := qrcode.New(publicURL, qrcode.Medium)
	if err != nil {
		return buf, fmt.Errorf("failed to build QR code: %w", err)
	}
	qr.DisableBorder = true
	qrImg := qr.Image(qrSize)

	dc := gg.NewContext(labelWidth, labelHeight)

	// White card
	dc.SetColor(color.White)
	dc.DrawRectangle(0, 0, labelWidth, labelHeight)
	dc.Fill()

	dc.DrawImage(qrImg, (labelWidth-qrSize)/2, qrTop)

	cx := float64(labelWidth) / 2
	y := float64(qrTop + qrSize + captionGap)

	dc.SetColor(color.Black)
	dc.SetFontFace(r.captionFace)
	caption := fitString(dc, strings.TrimSpace(productName), labelWidth-48)
	if caption != "" {
		tw, th := dc.MeasureString(caption)
		dc.DrawString(caption, cx-(tw/2), y+th)
		y += th + uidGap
	}

	if uid := strings.TrimSpace(publicUID); uid != "" {
		dc.SetColor(color.NRGBA{R: 0x6B, G: 0x6B, B: 0x6B, A: 0xFF})
		dc.SetFontFace(r.uidFace)
		tw, th := dc.MeasureString(uid)
		dc.DrawString(uid, cx-(tw/2), y+th)
	}

	if err := dc.EncodePNG(&buf); err != nil {
		return buf, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf, nil
}

// fitString truncates s until it fits maxWidth in the current font face.
func fitString(dc *gg.Context, s string, maxWidth int) string {
	if s == "" {
		return s
	}
	w, _ := dc.MeasureString(s)
	if w <= float64(maxWidth) {
		return s
	}
	runes := []rune(s)
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		candidate := strings.TrimSpace(string(runes)) + "..."
		w, _ = dc.MeasureString(candidate)
		if w <= float64(maxWidth) {
			return candidate
		}
	}
	return string(runes)
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	face := truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	return face, nil
}
