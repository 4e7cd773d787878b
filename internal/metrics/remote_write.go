package metrics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	"go.uber.org/zap"
)

// Shipper pushes gathered metrics to Mimir, one write request per tenant.
type Shipper struct {
	collector *Collector
	gatherer  prometheus.Gatherer
	client    *http.Client
	logger    *zap.Logger
	now       func() time.Time
}

func NewShipper(c *Collector, gatherer prometheus.Gatherer, logger *zap.Logger) *Shipper {
	return &Shipper{
		collector: c,
		gatherer:  gatherer,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Shipper) Start(ctx context.Context) {
	if s.collector.config.URL == "" {
		s.logger.Info("Mimir remote write disabled")
		return
	}

	interval := s.collector.config.FlushInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				s.logger.Warn("Remote write failed", zap.Error(err))
			}
		}
	}
}

func (s *Shipper) Flush(ctx context.Context) error {
	mfs, err := s.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	samples := s.metricsToSamples(mfs)
	if len(samples) == 0 {
		return nil
	}

	batchSize := s.collector.config.BatchSize
	if batchSize <= 0 {
		batchSize = len(samples)
	}

	for i := 0; i < len(samples); i += batchSize {
		end := i + batchSize
		if end > len(samples) {
			end = len(samples)
		}

		if err := s.sendBatch(ctx, samples[i:end]); err != nil {
			return fmt.Errorf("failed to send batch: %w", err)
		}
	}

	return nil
}

func (s *Shipper) metricsToSamples(mfs []*dto.MetricFamily) []prompb.TimeSeries {
	var samples []prompb.TimeSeries
	ts := s.now().UnixNano() / int64(time.Millisecond)

	for _, mf := range mfs {
		for _, m := range mf.Metric {
			var tenantID string
			labels := make([]prompb.Label, 0, len(m.Label)+1)

			for _, l := range m.Label {
				if l.GetName() == "tenant_id" {
					tenantID = l.GetValue()
				}
				labels = append(labels, prompb.Label{
					Name:  l.GetName(),
					Value: l.GetValue(),
				})
			}

			// Only tenant scoped counters and gauges are shipped
			if tenantID == "" {
				continue
			}

			labels = append(labels, prompb.Label{
				Name:  "__name__",
				Value: mf.GetName(),
			})

			var value float64
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				value = m.Counter.GetValue()
			case dto.MetricType_GAUGE:
				value = m.Gauge.GetValue()
			default:
				continue
			}

			samples = append(samples, prompb.TimeSeries{
				Labels:  labels,
				Samples: []prompb.Sample{{Value: value, Timestamp: ts}},
			})
		}
	}

	return samples
}

func (s *Shipper) sendBatch(ctx context.Context, samples []prompb.TimeSeries) error {
	byTenant := make(map[string][]prompb.TimeSeries)
	for _, series := range samples {
		for _, label := range series.Labels {
			if label.Name == "tenant_id" {
				byTenant[label.Value] = append(byTenant[label.Value], series)
				break
			}
		}
	}

	for tenantID, tenantSamples := range byTenant {
		if err := s.push(ctx, tenantID, tenantSamples); err != nil {
			return err
		}
	}

	return nil
}

func (s *Shipper) push(ctx context.Context, tenantID string, series []prompb.TimeSeries) error {
	req := &prompb.WriteRequest{Timeseries: series}

	data, err := req.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	compressed := snappy.Encode(nil, data)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.collector.config.URL+"/api/v1/push", bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	header := s.collector.config.TenantHeader
	if header == "" {
		header = "X-Scope-OrgID"
	}
	httpReq.Header.Set(header, tenantID)
	if s.collector.config.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.collector.config.AuthToken)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("remote write failed with status %d", resp.StatusCode)
	}

	return nil
}
