// Package tracing initializes opencensus tracing for the configurator: the
// sampler applied to the REST server spans and an optional Jaeger exporter.
package tracing

import (
	"errors"

	"contrib.go.opencensus.io/exporter/jaeger"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	config "github.com/spf13/viper"
	"go.opencensus.io/trace"
)

// Commandline options for exporter endpoints
const (
	jaegerEndpointOpt       = "jaeger-endpoint"
	jaegerAgentEndpointOpt  = "jaeger-agent-endpoint"
	jaegerSamplerOpt        = "jaeger-sampler"
	jaegerSampleFractionOpt = "jaeger-sample-fraction"
)

// SamplerType selects which traces are sampled
type SamplerType uint8

// Sampler types
const (
	// Never - Don't sample any trace
	Never SamplerType = iota
	// Always - Sample every trace
	Always
	// Probabilistic - Sample based on sample fraction
	Probabilistic
)

func (s SamplerType) String() string {
	switch s {
	case Never:
		return "Never"
	case Always:
		return "Always"
	case Probabilistic:
		return "Probabilistic"
	}
	return "Unknown"
}

// DefaultSampleFraction - Default sample fraction. By default every 1 in 10
// traces will be sampled.
const DefaultSampleFraction = 0.1

var (
	errInvalidEndpoints = errors.New("invalid Jaeger endpoints")
	errInvalidSampler   = errors.New("invalid sampler type")
	errInvalidFraction  = errors.New("invalid sample fraction")
)

// InitFlags initializes the command line options for the tracing endpoints
func InitFlags() {
	flag.String(jaegerEndpointOpt, "", "Jaeger collector endpoint that accepts spans from Jaeger agent.")
	flag.String(jaegerAgentEndpointOpt, "", "Jaeger agent endpoint that the Jaeger client sends spans to.")
	flag.Int(jaegerSamplerOpt, int(Never), "Jaeger sampler to employ (0 - never or 1 - always or 2 - probabilistic).")
	flag.Float64(jaegerSampleFractionOpt, DefaultSampleFraction, "Jaeger sample fraction to use if sampler type is set to probabilistic.")
}

// ValidateEndpoints validates Jaeger endpoints
func ValidateEndpoints(endpoint, agentEndpoint string) error {
	if endpoint == "" || agentEndpoint == "" {
		return errInvalidEndpoints
	}
	return nil
}

// ValidateSampler validates sampler type
func ValidateSampler(sampler int) error {
	switch SamplerType(sampler) {
	case Never, Always, Probabilistic:
		return nil
	}
	return errInvalidSampler
}

// ValidateSampleFraction validates sample fraction in case sampler type is
// probabilistic
func ValidateSampleFraction(sampler int, sampleFraction float64) error {
	if SamplerType(sampler) != Probabilistic {
		return nil
	}
	if sampleFraction <= 0.0 || sampleFraction >= 1.0 {
		return errInvalidFraction
	}
	return nil
}

// SamplerFor returns the opencensus sampler for the given settings. Invalid
// settings disable sampling or fall back to the default fraction.
func SamplerFor(sampler int, sampleFraction float64) trace.Sampler {
	if err := ValidateSampler(sampler); err != nil {
		log.WithField("sampler", sampler).Warning("tracing: Invalid sampler type option provided. Tracing is disabled.")
		return trace.NeverSample()
	}
	switch SamplerType(sampler) {
	case Always:
		return trace.AlwaysSample()
	case Probabilistic:
		if err := ValidateSampleFraction(sampler, sampleFraction); err != nil {
			log.WithFields(log.Fields{
				"sampleFraction":        sampleFraction,
				"defaultSampleFraction": DefaultSampleFraction,
			}).Warning("tracing: Invalid sample fraction provided. Applying default value.")
			sampleFraction = DefaultSampleFraction
		}
		return trace.ProbabilitySampler(sampleFraction)
	}
	return trace.NeverSample()
}

// Init registers a Jaeger exporter when both endpoints are configured and
// applies the configured sampler. The returned function flushes outstanding
// spans and is never nil.
func Init(serviceName string) (flush func()) {
	flush = func() {}

	endpoint := config.GetString(jaegerEndpointOpt)
	agentEndpoint := config.GetString(jaegerAgentEndpointOpt)
	if err := ValidateEndpoints(endpoint, agentEndpoint); err != nil {
		log.Debug("tracing: Jaeger endpoints not specified, tracing disabled")
		trace.ApplyConfig(trace.Config{DefaultSampler: trace.NeverSample()})
		return flush
	}

	exporter, err := jaeger.NewExporter(jaeger.Options{
		CollectorEndpoint: endpoint,
		AgentEndpoint:     agentEndpoint,
		Process:           jaeger.Process{ServiceName: serviceName},
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"jaegerEndpoint":      endpoint,
			"jaegerAgentEndpoint": agentEndpoint,
		}).Warning("tracing: Unable to create opencensus jaeger exporter")
		return flush
	}
	trace.RegisterExporter(exporter)

	sampler := config.GetInt(jaegerSamplerOpt)
	sampleFraction := config.GetFloat64(jaegerSampleFractionOpt)
	trace.ApplyConfig(trace.Config{DefaultSampler: SamplerFor(sampler, sampleFraction)})

	log.WithFields(log.Fields{
		"jaegerEndpoint":      endpoint,
		"jaegerAgentEndpoint": agentEndpoint,
		"sampler":             SamplerType(sampler),
		"sampleFraction":      sampleFraction,
	}).Info("tracing: Registered opencensus jaeger exporter")

	return exporter.Flush
}
