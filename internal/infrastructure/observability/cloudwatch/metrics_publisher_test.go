package cloudwatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
)

type fakeCloudWatch struct {
	mu     sync.Mutex
	inputs []*cloudwatch.PutMetricDataInput
	fail   int
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail > 0 {
		f.fail--
		return nil, errors.New("throttled")
	}
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestMapUnit(t *testing.T) {
	tests := []struct {
		unit     string
		expected string
	}{
		{"Count", "Count"},
		{"Milliseconds", "Milliseconds"},
		{"ms", "Milliseconds"},
		{"Percent", "Percent"},
		{"custom", "None"},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			if got := mapUnit(tt.unit); string(got) != tt.expected {
				t.Errorf("mapUnit(%q) = %v, want %v", tt.unit, got, tt.expected)
			}
		})
	}
}

func TestConvertToDatum(t *testing.T) {
	p := &MetricsPublisher{
		namespace:         "DDCKiosk",
		defaultDimensions: map[string]string{"KioskId": "lobby", "Technique": "default"},
		storageResolution: 60,
	}

	at := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)
	datum := p.convertToDatum(port.MetricPoint{
		Name:       "ScreenshotCaptured",
		Value:      1,
		Unit:       "Count",
		Dimensions: map[string]string{"Technique": "canvas-draw", "Empty": ""},
		Timestamp:  at,
	})

	if *datum.MetricName != "ScreenshotCaptured" || *datum.Value != 1 || datum.Unit != "Count" {
		t.Fatalf("unexpected datum: %+v", datum)
	}
	if !datum.Timestamp.Equal(at) || *datum.StorageResolution != 60 {
		t.Fatalf("unexpected timestamp or resolution")
	}

	// сортировка по имени, пустые значения отбрасываются, точка перекрывает default
	want := [][2]string{{"KioskId", "lobby"}, {"Technique", "canvas-draw"}}
	if len(datum.Dimensions) != len(want) {
		t.Fatalf("expected %d dimensions, got %d", len(want), len(datum.Dimensions))
	}
	for i, dim := range datum.Dimensions {
		if *dim.Name != want[i][0] || *dim.Value != want[i][1] {
			t.Fatalf("dimension %d: got %s=%s", i, *dim.Name, *dim.Value)
		}
	}
}

func TestMetricsPublisher_FlushOnFullBuffer(t *testing.T) {
	client := &fakeCloudWatch{}
	cfg := MetricsPublisherConfig{Namespace: "DDCKiosk", Region: "us-east-1", BufferSize: 2}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate() error = %v", err)
	}
	p := newMetricsPublisher(client, cfg)
	ctx := context.Background()

	if err := p.PublishBatch(ctx, []port.MetricPoint{{Name: "ConnectionAttempt", Value: 1, Unit: "Count"}}); err != nil {
		t.Fatalf("PublishBatch() error = %v", err)
	}
	if len(client.inputs) != 0 {
		t.Fatalf("buffer must not flush before it is full")
	}

	_ = p.PublishBatch(ctx, []port.MetricPoint{{Name: "ConnectionAttempt", Value: 1}, {Name: ""}})
	if len(client.inputs) != 1 || len(client.inputs[0].MetricData) != 2 {
		t.Fatalf("expected one request with 2 points, got %d requests", len(client.inputs))
	}
	if *client.inputs[0].Namespace != "DDCKiosk" {
		t.Fatalf("unexpected namespace")
	}
}

func TestMetricsPublisher_RetriesThenSucceeds(t *testing.T) {
	client := &fakeCloudWatch{fail: 1}
	cfg := MetricsPublisherConfig{Namespace: "DDCKiosk", Region: "us-east-1"}
	_ = cfg.validate()
	p := newMetricsPublisher(client, cfg)

	_ = p.PublishBatch(context.Background(), []port.MetricPoint{{Name: "CaptureFailed", Value: 3}})
	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(client.inputs) != 1 {
		t.Fatalf("expected successful retry, got %d requests", len(client.inputs))
	}
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		config    MetricsPublisherConfig
		expectErr bool
	}{
		{name: "valid", config: MetricsPublisherConfig{Namespace: "DDCKiosk", Region: "us-east-1"}},
		{name: "missing namespace", config: MetricsPublisherConfig{Region: "us-east-1"}, expectErr: true},
		{name: "missing region", config: MetricsPublisherConfig{Namespace: "DDCKiosk"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			err := cfg.validate()
			if (err != nil) != tt.expectErr {
				t.Fatalf("validate() error = %v, expectErr %v", err, tt.expectErr)
			}
			if err == nil && (cfg.BufferSize != 20 || cfg.StorageResolution != 60 || cfg.FlushInterval != 30*time.Second) {
				t.Fatalf("defaults not applied: %+v", cfg)
			}
		})
	}
}
