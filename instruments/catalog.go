// Package instruments holds the hand-written instrumentations of the JGroups
// protocols that do not publish an observability schema, and the default
// catalog combining them with the generic fallback.
package instruments

import (
	"sync"
	"time"

	"github.com/rhusar/jgroups-opentelemetry/instrumentation"
	"github.com/rhusar/jgroups-opentelemetry/protocols"
	"github.com/rhusar/jgroups-opentelemetry/protocols/dns"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

// All returns a fresh list of every built-in instrumentation, the generic
// fallback last.
func All() []instrumentation.Instrumentation {
	return []instrumentation.Instrumentation{
		NewDiscovery(protocols.TypePing),
		NewDiscovery(protocols.TypeMPing),
		NewDiscovery(protocols.TypeBPing),
		NewDiscovery(protocols.TypeTCPPing),
		NewDiscovery(protocols.TypeTCPGossip),
		NewDiscovery(protocols.TypeLocalPing),
		NewDiscovery(protocols.TypeSharedLoopbackPing),
		NewDiscovery(dns.TypeDNSPing),
		NewFilePing(protocols.TypeFilePing),
		NewFilePing(protocols.TypeJDBCPing2),
		NewFilePing(protocols.TypeRackspacePing),
		NewFilePing(protocols.TypeSwiftPing),
		JDBCPingInstrumentation{},

		NewFlowControl(protocols.TypeUFC),
		NewMFC(),
		Unicast3Instrumentation{},

		FDAllInstrumentation{},
		NewFDAll2(),
		FDAll3Instrumentation{},
		FDSockInstrumentation{},
		FDSock2Instrumentation{},
		VerifySuspect2Instrumentation{},

		Merge3Instrumentation{},
		REDInstrumentation{},
		GMSInstrumentation{},
		STABLEInstrumentation{},

		instrumentation.Generic{},
	}
}

var defaultCatalog = sync.OnceValues(func() (*instrumentation.Catalog, error) {
	return instrumentation.NewCatalog(All()...)
})

// Catalog returns the shared catalog of All. It is built once.
func Catalog() (*instrumentation.Catalog, error) {
	return defaultCatalog()
}

// protocolAs asserts the context's protocol to the accessor set an
// instrumentation reads.
func protocolAs[P any](ctx *instrumentation.Context) (P, error) {
	p, ok := ctx.Protocol.(P)
	if !ok {
		var zero P
		var id stack.TypeID
		if ctx.Protocol != nil {
			id = ctx.Protocol.TypeID()
		}
		return zero, instrumentation.ErrUnknownProtocol.WithMsgf("protocol %T (%s) does not expose %T", ctx.Protocol, id, &zero)
	}
	return p, nil
}

func intReader(read func() int) func() int64 {
	return func() int64 { return int64(read()) }
}

// durationMillis reads *d on every collection so reconfiguration is observed.
func durationMillis(d *time.Duration) func() int64 {
	return func() int64 { return d.Milliseconds() }
}
