package observability

import (
	"os"
	"strconv"
	"strings"

	"github.com/smallbiznis/crm/internal/config"
)

// Config is the logging, tracing and metrics setup for one process. Values
// come from the app config and may be overridden by the standard OTEL_* and
// LOG_* variables.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	out := Config{
		ServiceName: firstNonEmpty(cfg.AppName, "crm"),
		Environment: firstNonEmpty(os.Getenv("DEPLOYMENT_ENV"), cfg.Environment),
		Version:     firstNonEmpty(os.Getenv("SERVICE_VERSION"), cfg.AppVersion),
		LogLevel:    strings.ToLower(firstNonEmpty(os.Getenv("LOG_LEVEL"), "info")),
		LogFormat:   strings.ToLower(firstNonEmpty(os.Getenv("LOG_FORMAT"), "json")),

		OtelExporterEndpoint: firstNonEmpty(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), cfg.OTLPEndpoint),
		OtelExporterProtocol: normalizeProtocol(firstNonEmpty(
			os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL"),
			os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"),
			cfg.OTLPProtocol,
		)),
	}

	// nothing to export to unless an endpoint is configured
	out.OtelEnabled = envBool("OTEL_ENABLED", out.OtelExporterEndpoint != "")
	out.OtelSamplingRatio = envFloat("OTEL_SAMPLING_RATIO", defaultSamplingRatio(out.Environment))
	return out
}

// Debug reports whether verbose request diagnostics are wanted.
func (c Config) Debug() bool {
	return c.LogLevel == "debug" || isDevEnv(c.Environment)
}

func defaultSamplingRatio(env string) float64 {
	if isDevEnv(env) {
		return 1
	}
	return 0.1
}

func isDevEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// normalizeProtocol folds the OTLP protocol names onto grpc or http.
func normalizeProtocol(protocol string) string {
	switch strings.ToLower(protocol) {
	case "http", "http/protobuf", "http/json":
		return "http"
	default:
		return "grpc"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func envBool(key string, def bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}

func envFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
