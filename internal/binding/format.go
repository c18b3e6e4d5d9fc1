package binding

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"labelDesk/internal/label"
)

// ErrFormatFailure 表示值无法按指定格式转换；调用方应回退到原始字符串。
var ErrFormatFailure = errors.New("format failure")

const (
	shortDateLayout = "02/01/2006"

	// SerialDateThreshold 以上的数字视为电子表格日期序列号（自 1899-12-30 起的天数）。
	SerialDateThreshold = 20000
	// MaxDateSerial 是 9999-12-31 的序列号。
	MaxDateSerial = 2958465
)

var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var idMonths = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006/01/02",
}

// numberSymbols 是某个语言的千位分隔符与小数点。
type numberSymbols struct {
	group string
	point string
}

var (
	idrSymbols = symbolsFor(language.Indonesian)
	usdSymbols = symbolsFor(language.AmericanEnglish)
)

// symbolsFor 从 x/text 的本地化输出中取出分隔符，金额本身不经过 float64。
func symbolsFor(tag language.Tag) numberSymbols {
	sample := []rune(message.NewPrinter(tag).Sprintf("%v",
		number.Decimal(1234.5, number.MinFractionDigits(1), number.MaxFractionDigits(1))))
	if len(sample) != 7 {
		return numberSymbols{group: ",", point: "."}
	}
	return numberSymbols{group: string(sample[1]), point: string(sample[5])}
}

// formatCurrency 四舍五入到 places 位小数并分组，负号写在货币符号之前。
func formatCurrency(amount decimal.Decimal, symbol string, places int32, sym numberSymbols) string {
	rounded := amount.Round(places)
	intPart, frac, _ := strings.Cut(rounded.Abs().StringFixed(places), ".")

	var b strings.Builder
	if rounded.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString(symbol)
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(sym.group)
		}
		b.WriteRune(d)
	}
	if frac != "" {
		b.WriteString(sym.point)
		b.WriteString(frac)
	}
	return b.String()
}

// Format applies kind to value. Errors wrap ErrFormatFailure.
func Format(value any, kind label.FormatKind) (string, error) {
	switch kind {
	case "", label.FormatNone:
		return Stringify(value), nil
	case label.FormatCurrencyIDR:
		amount, err := toDecimal(value)
		if err != nil {
			return "", err
		}
		return formatCurrency(amount, "Rp ", 0, idrSymbols), nil
	case label.FormatCurrencyUSD:
		amount, err := toDecimal(value)
		if err != nil {
			return "", err
		}
		return formatCurrency(amount, "$", 2, usdSymbols), nil
	case label.FormatDateShort:
		t, err := toTime(value)
		if err != nil {
			return "", err
		}
		return t.Format(shortDateLayout), nil
	case label.FormatDateLong:
		t, err := toTime(value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d %s %d", t.Day(), idMonths[t.Month()-1], t.Year()), nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", ErrFormatFailure, kind)
	}
}

// Stringify renders a row value the way it would appear unformatted.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(shortDateLayout)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func toDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Decimal{}, fmt.Errorf("%w: %v is not a finite amount", ErrFormatFailure, v)
		}
		return decimal.NewFromFloat(v), nil
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return decimal.Decimal{}, fmt.Errorf("%w: %v is not a finite amount", ErrFormatFailure, v)
		}
		return decimal.NewFromFloat32(v), nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("%w: %q is not a number: %v", ErrFormatFailure, v, err)
		}
		return d, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("%w: %q is not a number: %v", ErrFormatFailure, v, err)
		}
		return d, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: unsupported amount type %T", ErrFormatFailure, value)
	}
}

func toTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case float64:
		return fromSerial(v)
	case int:
		return fromSerial(float64(v))
	case int64:
		return fromSerial(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q is not a date serial", ErrFormatFailure, v)
		}
		return fromSerial(f)
	case string:
		s := strings.TrimSpace(v)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromSerial(f)
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %q is not a date", ErrFormatFailure, v)
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported date type %T", ErrFormatFailure, value)
	}
}

// fromSerial 将电子表格日期序列号转换为时间，小数部分表示当日时间。
func fromSerial(serial float64) (time.Time, error) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || serial <= SerialDateThreshold || serial >= MaxDateSerial+1 {
		return time.Time{}, fmt.Errorf("%w: %v is not a spreadsheet date serial", ErrFormatFailure, serial)
	}
	days := math.Floor(serial)
	frac := serial - days
	t := serialEpoch.AddDate(0, 0, int(days))
	return t.Add(time.Duration(math.Round(frac*86400)) * time.Second), nil
}
