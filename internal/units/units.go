// Package units 负责毫米与设备像素之间的换算。
//
// 屏幕布局固定使用 96 DPI 作为参考分辨率；打印机 DPI 只用于计算导出时的缩放比例，
// 不参与屏幕几何计算。换算过程中不做任何取整，取整由显示层自行处理。
package units

// MMPerInch 是物理常量：1 英寸 = 25.4 毫米。
const MMPerInch = 25.4

// ReferenceDPI 是屏幕布局使用的参考分辨率。
const ReferenceDPI = 96.0

// 常见热敏标签打印机分辨率。
const (
	PrinterDPI203 = 203.0
	PrinterDPI300 = 300.0
	PrinterDPI600 = 600.0
)

// MMToPx converts millimeters to device pixels at dpi.
// A non-positive dpi falls back to ReferenceDPI.
func MMToPx(mm, dpi float64) float64 {
	return mm * normalizeDPI(dpi) / MMPerInch
}

// PxToMM converts device pixels to millimeters at dpi.
// A non-positive dpi falls back to ReferenceDPI.
func PxToMM(px, dpi float64) float64 {
	return px * MMPerInch / normalizeDPI(dpi)
}

// MMToPxAt96 是 MMToPx(mm, ReferenceDPI) 的简写。
func MMToPxAt96(mm float64) float64 {
	return MMToPx(mm, ReferenceDPI)
}

// PxToMMAt96 是 PxToMM(px, ReferenceDPI) 的简写。
func PxToMMAt96(px float64) float64 {
	return PxToMM(px, ReferenceDPI)
}

// PrintScale 返回参考分辨率与打印机分辨率之比，用于导出尺寸计算。
func PrintScale(printerDPI float64) float64 {
	return ReferenceDPI / normalizeDPI(printerDPI)
}

// MMToInches converts millimeters to inches, the unit expected by the PDF paper size.
func MMToInches(mm float64) float64 {
	return mm / MMPerInch
}

func normalizeDPI(dpi float64) float64 {
	if dpi <= 0 {
		return ReferenceDPI
	}
	return dpi
}
