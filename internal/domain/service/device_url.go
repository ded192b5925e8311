package service

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
	"github.com/valyala/fasttemplate"
)

// DefaultDeviceURLTemplate: адрес панели DDC4000. Плейсхолдеры: {scheme}, {host}, {resolution}, {extra}.
const DefaultDeviceURLTemplate = "{scheme}://{host}/ddcdialog.html?useOvl=1&busyReload=1&type={resolution}{extra}"

const (
	ProxyPathPrefix   = "/proxy-ddc"
	cacheBusterParam  = "_t"
	qvgaExtraParams   = "&x=0&y=0&fit=1"
	secureShellScheme = "https"
)

// DeviceURL: результат построения адреса для iframe
type DeviceURL struct {
	// Target: прямой адрес устройства
	Target string `json:"originalUrl"`
	// URL: адрес, который должен загрузить iframe (прямой или через proxy)
	URL string `json:"url"`
	// ProxyQueryURL: совместимая форма /proxy-ddc?url=...
	ProxyQueryURL string `json:"proxyQueryUrl,omitempty"`
	Proxied       bool   `json:"proxied"`
}

// URLBuilder строит адрес устройства по шаблону
type URLBuilder struct {
	template *fasttemplate.Template
	now      func() time.Time
}

func NewURLBuilder(template string) (*URLBuilder, error) {
	if strings.TrimSpace(template) == "" {
		template = DefaultDeviceURLTemplate
	}
	t, err := fasttemplate.NewTemplate(template, "{", "}")
	if err != nil {
		return nil, fmt.Errorf("invalid device url template: %w", err)
	}
	return &URLBuilder{template: t, now: time.Now}, nil
}

// Target возвращает прямой адрес панели устройства
func (b *URLBuilder) Target(conn entity.ConnectionConfig) string {
	extra := ""
	if conn.Resolution == valueobject.QVGA {
		extra = qvgaExtraParams
	}
	return b.template.ExecuteString(map[string]interface{}{
		"scheme":     conn.Scheme.String(),
		"host":       conn.Host,
		"resolution": conn.Resolution.String(),
		"extra":      extra,
	})
}

// Build строит адрес для iframe. Если оболочка открыта по https, а устройство
// доступно только по http, используется proxy (mixed content).
func (b *URLBuilder) Build(conn entity.ConnectionConfig, shellScheme string) (DeviceURL, error) {
	if err := conn.Validate(); err != nil {
		return DeviceURL{}, err
	}

	target := b.Target(conn)
	result := DeviceURL{Target: target, URL: target}

	if strings.EqualFold(shellScheme, secureShellScheme) && conn.Scheme == valueobject.HTTP {
		proxied, err := ProxyPath(target)
		if err != nil {
			return DeviceURL{}, err
		}
		result.URL = proxied
		result.ProxyQueryURL = ProxyQuery(target)
		result.Proxied = true
	}
	return result, nil
}

// WithCacheBuster добавляет _t=<unix ms>, чтобы каждая загрузка обходила кеш
func (b *URLBuilder) WithCacheBuster(rawURL string) string {
	separator := "?"
	if strings.Contains(rawURL, "?") {
		separator = "&"
	}
	return rawURL + separator + cacheBusterParam + "=" + strconv.FormatInt(b.now().UnixMilli(), 10)
}

// ProxyQuery возвращает /proxy-ddc?url=<target>
func ProxyQuery(target string) string {
	return ProxyPathPrefix + "?url=" + url.QueryEscape(target)
}

// ProxyPath возвращает /proxy-ddc/{scheme}/{host}/{path}?{query}.
// В этой форме относительные ссылки страницы устройства тоже идут через proxy.
func ProxyPath(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid proxy target: %q", target)
	}
	p := ProxyPathPrefix + "/" + u.Scheme + "/" + u.Host + "/" + strings.TrimPrefix(u.EscapedPath(), "/")
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p, nil
}
