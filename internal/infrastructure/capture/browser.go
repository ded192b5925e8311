package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// RenderRequest: что загрузить в headless Chrome и что снять
type RenderRequest struct {
	URL    string
	Width  int
	Height int
	// Selector: ID элемента ("#ddcFrame"); пустой: весь viewport
	Selector string
	// Settle: пауза после загрузки, панель дорисовывает интерфейс скриптами
	Settle time.Duration
}

// PageRenderer возвращает PNG отрисованной страницы
type PageRenderer interface {
	Render(ctx context.Context, req RenderRequest) ([]byte, error)
}

// Browser: один процесс Chrome на весь kioskd, вкладка на каждый захват.
// Процесс запускается при первом захвате.
type Browser struct {
	execPath string

	mu            sync.Mutex
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
}

func NewBrowser(execPath string) *Browser {
	return &Browser{execPath: execPath}
}

func (b *Browser) start() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil && b.browserCtx.Err() == nil {
		return b.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(1280, 800),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
		// панели DDC4000 работают с самоподписанными сертификатами
		chromedp.Flag("ignore-certificate-errors", true),
	)
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// запуск процесса
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	b.browserCtx = browserCtx
	b.cancelAlloc = cancelAlloc
	b.cancelBrowser = cancelBrowser
	return browserCtx, nil
}

// Render открывает новую вкладку и снимает страницу или элемент
func (b *Browser) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	browserCtx, err := b.start()
	if err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var buf []byte
	actions := []chromedp.Action{
		chromedp.EmulateViewport(int64(req.Width), int64(req.Height)),
		chromedp.Navigate(req.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if req.Settle > 0 {
		actions = append(actions, chromedp.Sleep(req.Settle))
	}
	if req.Selector != "" {
		actions = append(actions, chromedp.Screenshot(req.Selector, &buf, chromedp.NodeVisible, chromedp.ByID))
	} else {
		actions = append(actions, chromedp.CaptureScreenshot(&buf))
	}

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("chrome render failed: %w", err)
	}
	return buf, nil
}

// Close завершает процесс Chrome
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelBrowser != nil {
		b.cancelBrowser()
		b.cancelAlloc()
		b.browserCtx = nil
	}
}
