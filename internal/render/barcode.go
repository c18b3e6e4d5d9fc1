package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"image/png"
	"math"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/qr"

	"labelDesk/internal/label"
	"labelDesk/internal/units"
)

// ErrEmptyBarcode 表示条码内容为空。
var ErrEmptyBarcode = errors.New("empty barcode content")

// EncodeBarcode 按符号体系编码 content，并缩放到 widthMM×heightMM 在 dpi 下的像素尺寸。
// 目标尺寸小于条码最小模块宽度时使用最小宽度，由 CSS 缩放到元素框内。
func EncodeBarcode(symbology, content string, widthMM, heightMM, dpi float64) (barcode.Barcode, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyBarcode
	}

	w := int(math.Round(units.MMToPx(widthMM, dpi)))
	h := int(math.Round(units.MMToPx(heightMM, dpi)))

	var code barcode.Barcode
	switch symbology {
	case label.SymbologyQR:
		c, err := qr.Encode(content, qr.M, qr.Auto)
		if err != nil {
			return nil, fmt.Errorf("encode qr: %w", err)
		}
		code = c
		side := min(w, h)
		if minSide := c.Bounds().Dx(); side < minSide {
			side = minSide
		}
		w, h = side, side
	case "", label.SymbologyCode128:
		c, err := code128.Encode(content)
		if err != nil {
			return nil, fmt.Errorf("encode code128: %w", err)
		}
		code = c
		if minWidth := c.Bounds().Dx(); w < minWidth {
			w = minWidth
		}
	default:
		return nil, fmt.Errorf("unsupported symbology %q", symbology)
	}

	if h < 1 {
		h = 1
	}
	scaled, err := barcode.Scale(code, w, h)
	if err != nil {
		return nil, fmt.Errorf("scale barcode: %w", err)
	}
	return scaled, nil
}

// BarcodeDataURI returns the encoded barcode as a PNG data URI.
func BarcodeDataURI(symbology, content string, widthMM, heightMM, dpi float64) (template.URL, error) {
	code, err := EncodeBarcode(symbology, content, widthMM, heightMM, dpi)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return "", fmt.Errorf("encode barcode png: %w", err)
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}
