// Package instrumentation turns protocol state into asynchronous OpenTelemetry
// instruments.
//
// A Catalog maps protocol types to Instrumentations. The Registrar walks a
// stack's protocols in layer order, builds a Context for each and runs the
// most specific Instrumentation, falling back to the declarative Generic
// instrumentation for protocols that publish an observability schema.
package instrumentation

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/rhusar/jgroups-opentelemetry/logger"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

const (
	metricNamespace = "jgroups."

	// AttributeCluster and AttributeNode identify the member a reading belongs to.
	AttributeCluster = attribute.Key("cluster")
	AttributeNode    = attribute.Key("node")
)

// Prefix returns the metric name prefix of a protocol type, trailing dot included:
//
//	org.jgroups.protocols.UNICAST3   -> jgroups.unicast3.
//	org.jgroups.protocols.pbcast.GMS -> jgroups.pbcast.gms.
//	com.example.CUSTOM               -> jgroups.com.example.custom.
func Prefix(id stack.TypeID) string {
	return metricNamespace + strings.ToLower(id.Relative()) + "."
}

// Attributes returns the attribute set stamped on every reading of a member.
func Attributes(cluster, node string) attribute.Set {
	return attribute.NewSet(AttributeCluster.String(cluster), AttributeNode.String(node))
}

// Context carries everything one protocol's registration needs.
// A fresh Context is built per protocol per registration pass.
type Context struct {
	Protocol stack.Protocol
	Meter    metric.Meter

	// ExposeConfiguration enables Configuration scoped metrics.
	ExposeConfiguration bool
	// CountersAsGauges registers counters as gauges.
	CountersAsGauges bool

	Prefix     string
	Attributes attribute.Set
	Logger     *logger.CtxZapLogger

	helper *Helper
}

// NewContext returns a Context for p with the prefix derived from its type.
func NewContext(p stack.Protocol, meter metric.Meter, attrs attribute.Set) *Context {
	c := &Context{
		Protocol:   p,
		Meter:      meter,
		Attributes: attrs,
	}
	if p != nil {
		c.Prefix = Prefix(p.TypeID())
	}
	return c
}

// Helper returns the registration helper bound to this context.
func (c *Context) Helper() *Helper {
	if c.helper == nil {
		c.helper = newHelper(c)
	}
	return c.helper
}

func (c *Context) log() *logger.CtxZapLogger {
	if c.Logger == nil {
		return logger.Nop()
	}
	return c.Logger
}
