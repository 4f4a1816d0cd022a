// Package observe instruments an invocation pipeline.
//
// The LoggingLayer is the outermost pipeline layer: every call that enters
// the pipeline is appended to an InvocationLog before anything else happens,
// then traced, counted and written as a structured log line. Telemetry is
// built on OpenTelemetry; exporters are chosen by name through the exporters
// subpackage.
package observe
