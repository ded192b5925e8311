package device

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

func TestProber_HTTPReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ddcdialog.html" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("<html>ddc</html>"))
	}))
	defer srv.Close()

	p := NewProber(nil, ProberConfig{ICMP: true}, logger.New("error"))
	p.ping = func(context.Context, string, time.Duration) (time.Duration, error) {
		return 3 * time.Millisecond, nil
	}

	result, err := p.Probe(context.Background(), "127.0.0.1", srv.URL+"/ddcdialog.html?type=WVGA")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if !result.Reachable || !result.ICMP || result.HTTPStatus != http.StatusOK || result.Latency != 3*time.Millisecond {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestProber_ICMPFailureIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewProber(nil, ProberConfig{ICMP: true}, logger.New("error"))
	p.ping = func(context.Context, string, time.Duration) (time.Duration, error) {
		return 0, errors.New("operation not permitted")
	}

	result, err := p.Probe(context.Background(), "127.0.0.1", srv.URL)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if !result.Reachable || result.ICMP || result.HTTPStatus != http.StatusNotFound {
		t.Fatalf("any HTTP answer means the panel is up, got %+v", result)
	}
}

func TestProber_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewProber(nil, ProberConfig{}, logger.New("error"))
	result, err := p.Probe(context.Background(), "", url)
	if err == nil || result.Reachable {
		t.Fatalf("expected unreachable, got %+v, %v", result, err)
	}
}

func TestProber_RespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	p := NewProber(nil, ProberConfig{}, logger.New("error"))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if _, err := p.Probe(ctx, "", srv.URL); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
