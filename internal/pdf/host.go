// Package pdf 是无头 Chromium 宿主打印：把打印面 HTML 按毫米纸张尺寸导出 PDF 或截图。
package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"labelDesk/internal/batch"
	"labelDesk/internal/render"
	"labelDesk/internal/units"
)

const (
	pageTimeout  = 30 * time.Second
	fontsTimeout = 5 * time.Second
)

var ErrBrowserClosed = errors.New("browser closed")

// Browser 持有一个长期运行的 Chromium 进程，多个打印周期共享。
type Browser struct {
	launch  *launcher.Launcher
	browser *rod.Browser
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Launch 启动无头 Chromium 并建立 CDP 连接。
func Launch(logger *slog.Logger) (*Browser, error) {
	if logger == nil {
		logger = slog.Default()
	}

	launch := launcher.New().
		Headless(true).
		NoSandbox(true)

	if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		launch.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	logger.Info("chromium ready", slog.String("control_url", browserURL))
	return &Browser{launch: launch, browser: browser, logger: logger}, nil
}

// Close 关闭浏览器并清理用户数据目录，可重复调用。
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	if err := b.browser.Close(); err != nil {
		b.logger.Warn("close browser failed", slog.Any("error", err))
	}
	b.launch.Cleanup()
}

// open 新建页面并载入打印面，等待字体就绪并切换到 print 媒体。
func (b *Browser) open(ctx context.Context, s render.Surface) (*rod.Page, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrBrowserClosed
	}

	// 页面不带超时，生命周期由调用方通过 Release 控制
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if err := b.load(page.Timeout(pageTimeout), s); err != nil {
		_ = page.Close()
		return nil, err
	}
	return page, nil
}

func (b *Browser) load(page *rod.Page, s render.Surface) error {
	if err := page.SetDocumentContent(s.HTML); err != nil {
		return fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}

	// 条码字体等 WebFont 未就绪时度量会回退，影响自动缩字
	if _, err := page.Timeout(fontsTimeout).Eval(`() => {
	  if (document && document.fonts && document.fonts.ready) {
	    return Promise.race([
	      document.fonts.ready.then(() => true),
	      new Promise((resolve) => setTimeout(() => resolve(true), 3000))
	    ]);
	  }
	  return true;
	}`); err != nil {
		b.logger.Warn("document.fonts.ready wait failed, continue",
			slog.String("surface_id", s.ID),
			slog.Any("error", err),
		)
	}

	if err := (proto.EmulationSetEmulatedMedia{Media: "print"}).Call(page); err != nil {
		return fmt.Errorf("set emulated media to print: %w", err)
	}
	return nil
}

// Host 实现 batch.Host：每个打印面一个页面，导出完成即发出打印事件。
type Host struct {
	browser *Browser
	logger  *slog.Logger

	mu    sync.Mutex
	pages map[string]*rod.Page
}

// NewHost wraps a running browser.
func NewHost(browser *Browser, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{browser: browser, logger: logger, pages: make(map[string]*rod.Page)}
}

// Print 载入打印面并在后台导出 PDF；导出结果作为唯一的打印事件送出。
func (h *Host) Print(ctx context.Context, s render.Surface) (<-chan batch.PrintEvent, error) {
	page, err := h.browser.open(ctx, s)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.pages[s.ID] = page
	h.mu.Unlock()

	events := make(chan batch.PrintEvent, 1)
	go func() {
		defer close(events)
		data, err := exportPDF(page.Timeout(pageTimeout), s.WidthMM, s.HeightMM)
		events <- batch.PrintEvent{Document: data, Err: err}
	}()
	return events, nil
}

// Release 关闭打印面所在页面。
func (h *Host) Release(s render.Surface) {
	h.mu.Lock()
	page, ok := h.pages[s.ID]
	delete(h.pages, s.ID)
	h.mu.Unlock()
	if !ok {
		return
	}
	if err := page.Close(); err != nil {
		h.logger.Warn("close print page failed", slog.String("surface_id", s.ID), slog.Any("error", err))
	}
}

// Screenshot 渲染打印面并截取第一张标签的 JPEG 图像。
func (h *Host) Screenshot(ctx context.Context, s render.Surface, quality int) ([]byte, error) {
	page, err := h.browser.open(ctx, s)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = page.Close()
	}()
	return captureLabel(page, quality)
}

func exportPDF(page *rod.Page, widthMM, heightMM float64) ([]byte, error) {
	params := &proto.PagePrintToPDF{
		PrintBackground:   true,
		PaperWidth:        float64Ptr(units.MMToInches(widthMM)),
		PaperHeight:       float64Ptr(units.MMToInches(heightMM)),
		MarginTop:         float64Ptr(0),
		MarginBottom:      float64Ptr(0),
		MarginLeft:        float64Ptr(0),
		MarginRight:       float64Ptr(0),
		PreferCSSPageSize: true,
	}
	reader, err := page.PDF(params)
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}
	return data, nil
}

func captureLabel(page *rod.Page, quality int) ([]byte, error) {
	element, err := page.Timeout(5 * time.Second).Element("#print-surface .label")
	if err == nil {
		if data, shotErr := element.Screenshot(proto.PageCaptureScreenshotFormatJpeg, quality); shotErr == nil {
			return data, nil
		}
	}

	req := &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: intPtr(quality),
	}
	data, err := page.Screenshot(true, req)
	if err != nil {
		return nil, fmt.Errorf("page screenshot: %w", err)
	}
	return data, nil
}

func float64Ptr(value float64) *float64 {
	return &value
}

func intPtr(value int) *int {
	return &value
}
