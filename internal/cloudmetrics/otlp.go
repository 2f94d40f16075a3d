package cloudmetrics

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	collectormetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const instrumentationScope = "recipeverse.cloudmetrics"

type Resource struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// OTLPPusher exports counters and gauges over the OTLP metrics gRPC service.
type OTLPPusher struct {
	address   string
	secure    bool
	authToken string
	resource  *resourcepb.Resource
	now       func() time.Time

	mu   sync.Mutex
	conn *grpc.ClientConn
}

func NewOTLPPusher(endpoint, authToken string, res Resource) (*OTLPPusher, error) {
	address, secure, err := parseOTLPEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	return &OTLPPusher{
		address:   address,
		secure:    secure,
		authToken: strings.TrimSpace(authToken),
		resource:  buildResource(res),
		now:       time.Now,
	}, nil
}

func (p *OTLPPusher) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	if p == nil || gatherer == nil {
		return nil
	}
	families, err := gatherer.Gather()
	if err != nil {
		return err
	}
	metrics := buildOTLPMetrics(families, uint64(p.now().UnixNano()))
	if len(metrics) == 0 {
		return nil
	}

	conn, err := p.connection()
	if err != nil {
		return err
	}
	if p.authToken != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+p.authToken)
	}

	client := collectormetricspb.NewMetricsServiceClient(conn)
	_, err = client.Export(ctx, &collectormetricspb.ExportMetricsServiceRequest{
		ResourceMetrics: []*metricspb.ResourceMetrics{{
			Resource: p.resource,
			ScopeMetrics: []*metricspb.ScopeMetrics{{
				Scope:   &commonpb.InstrumentationScope{Name: instrumentationScope},
				Metrics: metrics,
			}},
		}},
	})
	return err
}

func (p *OTLPPusher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

func (p *OTLPPusher) connection() (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return p.conn, nil
	}
	creds := insecure.NewCredentials()
	if p.secure {
		creds = credentials.NewClientTLSFromCert(nil, "")
	}
	conn, err := grpc.NewClient(p.address, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, err
	}
	p.conn = conn
	return conn, nil
}

func parseOTLPEndpoint(endpoint string) (string, bool, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", false, errors.New("metrics.endpoint is required")
	}
	if !strings.Contains(endpoint, "://") {
		return endpoint, false, nil
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid metrics.endpoint: %w", err)
	}
	if parsed.Host == "" {
		return "", false, errors.New("metrics.endpoint host is required")
	}
	secure := parsed.Scheme == "https" || parsed.Scheme == "grpcs"
	return parsed.Host, secure, nil
}

func buildResource(res Resource) *resourcepb.Resource {
	attrs := make([]*commonpb.KeyValue, 0, 3)
	for _, kv := range [][2]string{
		{"service.name", res.ServiceName},
		{"service.version", res.ServiceVersion},
		{"deployment.environment", res.Environment},
	} {
		if strings.TrimSpace(kv[1]) == "" {
			continue
		}
		attrs = append(attrs, stringAttr(kv[0], kv[1]))
	}
	return &resourcepb.Resource{Attributes: attrs}
}

func buildOTLPMetrics(families []*dto.MetricFamily, now uint64) []*metricspb.Metric {
	out := make([]*metricspb.Metric, 0, len(families))
	for _, family := range families {
		points := buildOTLPDataPoints(family, now)
		if len(points) == 0 {
			continue
		}
		metric := &metricspb.Metric{
			Name:        family.GetName(),
			Description: family.GetHelp(),
		}
		switch family.GetType() {
		case dto.MetricType_COUNTER:
			metric.Data = &metricspb.Metric_Sum{Sum: &metricspb.Sum{
				IsMonotonic:            true,
				AggregationTemporality: metricspb.AggregationTemporality_AGGREGATION_TEMPORALITY_CUMULATIVE,
				DataPoints:             points,
			}}
		case dto.MetricType_GAUGE:
			metric.Data = &metricspb.Metric_Gauge{Gauge: &metricspb.Gauge{DataPoints: points}}
		default:
			continue
		}
		out = append(out, metric)
	}
	return out
}

func buildOTLPDataPoints(family *dto.MetricFamily, now uint64) []*metricspb.NumberDataPoint {
	points := make([]*metricspb.NumberDataPoint, 0, len(family.GetMetric()))
	for _, metric := range family.GetMetric() {
		value, ok := scalarValue(family.GetType(), metric)
		if !ok {
			continue
		}
		attrs := make([]*commonpb.KeyValue, 0, len(metric.GetLabel()))
		for _, label := range metric.GetLabel() {
			attrs = append(attrs, stringAttr(label.GetName(), label.GetValue()))
		}
		points = append(points, &metricspb.NumberDataPoint{
			Attributes:   attrs,
			TimeUnixNano: now,
			Value:        &metricspb.NumberDataPoint_AsDouble{AsDouble: value},
		})
	}
	return points
}

func stringAttr(key, value string) *commonpb.KeyValue {
	return &commonpb.KeyValue{
		Key:   key,
		Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: value}},
	}
}
