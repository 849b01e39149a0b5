package common

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Log is the app global logger. It writes text to stdout until InitLogger replaces it.
	Log = slog.New(slog.NewTextHandler(os.Stdout, nil))
)

// InitLogger initializes the app global logger.
// Logs are exported over OTLP when exporterEndpoint is set, printed to stdout on local
// environments (or when nothing is exported), and appended to a rotated logFile when set.
func InitLogger(serviceName, serviceVersion, serviceEnvironment, exporterEndpoint, logFile string) (func(ctx context.Context) error, error) {

	var handlers []slog.Handler
	shutdown := func(ctx context.Context) error { return nil }

	if exporterEndpoint != "" {
		logExporter, err := otlploggrpc.New(context.Background(),
			otlploggrpc.WithEndpoint(exporterEndpoint),
			otlploggrpc.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("failed to otlploggrpc.New: %w", err)
		}

		lp := log.NewLoggerProvider(
			log.WithProcessor(
				log.NewBatchProcessor(logExporter),
			),
			log.WithResource(resource.NewWithAttributes(semconv.SchemaURL,
				semconv.ServiceNameKey.String(serviceName),
				semconv.ServiceVersionKey.String(serviceVersion),
				semconv.DeploymentEnvironmentNameKey.String(serviceEnvironment))),
		)
		shutdown = lp.Shutdown

		handlers = append(handlers, otelslog.NewHandler("github.com/ogero/stremio-cartoony",
			otelslog.WithLoggerProvider(lp)))
	}

	if exporterEndpoint == "" || serviceEnvironment == "lcl" || serviceEnvironment == "dk" {
		handlers = append(handlers, slog.NewTextHandler(os.Stdout, nil))
	}

	if logFile != "" {
		handlers = append(handlers, slog.NewJSONHandler(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
			Compress:   true,
		}, nil))
	}

	Log = slog.New(slogmulti.Fanout(handlers...))

	return shutdown, nil
}
