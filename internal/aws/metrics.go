package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricsRecorder writes count metrics into one CloudWatch namespace.
type MetricsRecorder struct {
	cw        CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

// NewMetricsRecorder returns a recorder for namespace.
func NewMetricsRecorder(cw CloudWatchAPI, namespace string) *MetricsRecorder {
	return &MetricsRecorder{
		cw:        cw,
		namespace: namespace,
		nowFunc:   time.Now,
	}
}

// Count records value occurrences of metric, tagged with the given dimensions.
func (m *MetricsRecorder) Count(ctx context.Context, metric string, value float64, dimensions map[string]string) error {
	datum := cwtypes.MetricDatum{
		MetricName: sdkaws.String(metric),
		Timestamp:  sdkaws.Time(m.nowFunc().UTC()),
		Unit:       cwtypes.StandardUnitCount,
		Value:      sdkaws.Float64(value),
	}
	for name, v := range dimensions {
		datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{
			Name:  sdkaws.String(name),
			Value: sdkaws.String(v),
		})
	}

	_, err := m.cw.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  sdkaws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		return fmt.Errorf("put metric data %s/%s: %w", m.namespace, metric, err)
	}
	return nil
}
