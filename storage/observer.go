package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/hatlonely/rse/log/logger"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Metrics 存储命令的 prometheus 指标
type Metrics struct {
	commandCounter  *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	activeCommands  *prometheus.GaugeVec
	batchSize       prometheus.Histogram
}

// NewMetrics 注册到 registerer，registerer 为 nil 时使用默认 registry
// 同名指标已经注册时复用已有的指标
func NewMetrics(name string, registerer prometheus.Registerer) (*Metrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		commandCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_commands_total",
				Help: "Total number of storage commands",
			},
			[]string{"table", "operation", "status"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_command_duration_seconds",
				Help:    "Duration of storage commands in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"operation"},
		),
		activeCommands: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name + "_active_commands",
				Help: "Number of storage commands in progress",
			},
			[]string{"operation"},
		),
		batchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    name + "_batch_size",
				Help:    "Number of commands per batch",
				Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
			},
		),
	}

	var err error
	if m.commandCounter, err = register(registerer, m.commandCounter); err != nil {
		return nil, err
	}
	if m.commandDuration, err = register(registerer, m.commandDuration); err != nil {
		return nil, err
	}
	if m.activeCommands, err = register(registerer, m.activeCommands); err != nil {
		return nil, err
	}
	if m.batchSize, err = register(registerer, m.batchSize); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](registerer prometheus.Registerer, c C) (C, error) {
	if err := registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, errors.Wrap(err, "register metrics failed")
	}
	return c, nil
}

// observer 为每条命令记录指标、span 和日志
type observer struct {
	name    string
	logger  logger.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

func (o *observer) observeBatch(size int) {
	if o.metrics != nil {
		o.metrics.batchSize.Observe(float64(size))
	}
}

func (o *observer) observe(ctx context.Context, command Command, fn func(context.Context) error) error {
	start := time.Now()
	operation := command.Operation()

	var span trace.Span
	if o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, fmt.Sprintf("storage.%s", operation),
			trace.WithAttributes(
				attribute.String("component", o.name),
				attribute.String("operation", operation),
				attribute.String("table", command.TableName),
			),
		)
		defer span.End()
	}

	if o.metrics != nil {
		o.metrics.activeCommands.WithLabelValues(operation).Inc()
		defer o.metrics.activeCommands.WithLabelValues(operation).Dec()
	}

	err := fn(ctx)
	duration := time.Since(start)

	if span != nil {
		span.SetAttributes(attribute.Int64("duration_us", duration.Microseconds()))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if o.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		o.metrics.commandCounter.WithLabelValues(command.TableName, operation, status).Inc()
		o.metrics.commandDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}

	if o.logger != nil {
		if err != nil {
			o.logger.WarnContext(ctx, "command rejected",
				"component", o.name,
				"operation", operation,
				"table", command.TableName,
				"duration_us", duration.Microseconds(),
				"error", err.Error(),
			)
		} else {
			o.logger.DebugContext(ctx, "command executed",
				"component", o.name,
				"operation", operation,
				"table", command.TableName,
				"duration_us", duration.Microseconds(),
			)
		}
	}

	return err
}

func newTracer(name string) trace.Tracer {
	return otel.Tracer(fmt.Sprintf("storage.%s", name))
}
