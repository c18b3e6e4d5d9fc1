package render

import (
	"golang.org/x/text/width"

	"labelDesk/internal/units"
)

// MinFontSizePt 是自动缩小字号的下限，低于此值的文本直接裁切。
const MinFontSizePt = 4.0

const (
	mmPerPt = units.MMPerInch / 72
	// 拉丁字符平均宽度约 0.6em，全角字符按 1em 计。
	narrowAdvanceEm = 0.6
	wideAdvanceEm   = 1.0
	lineHeightEm    = 1.2
)

// FitFontSize 估算单行文本在 widthMM×heightMM 框内能容纳的最大字号（不超过 sizePt）。
// 这是近似值，不做字体度量，超出部分仍由 overflow:hidden 裁切。
func FitFontSize(text string, sizePt, widthMM, heightMM float64) float64 {
	if sizePt <= 0 {
		sizePt = DefaultFontSizePt
	}
	size := sizePt

	if heightMM > 0 {
		if maxByHeight := heightMM / (lineHeightEm * mmPerPt); maxByHeight < size {
			size = maxByHeight
		}
	}

	if ems := advanceEm(text); ems > 0 && widthMM > 0 {
		if maxByWidth := widthMM / (ems * mmPerPt); maxByWidth < size {
			size = maxByWidth
		}
	}

	if size < MinFontSizePt {
		return MinFontSizePt
	}
	return size
}

func advanceEm(text string) float64 {
	var ems float64
	for _, r := range text {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			ems += wideAdvanceEm
		default:
			ems += narrowAdvanceEm
		}
	}
	return ems
}
