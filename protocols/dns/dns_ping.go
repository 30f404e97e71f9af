// Package dns holds the DNS based discovery protocol.
package dns

import (
	"github.com/rhusar/jgroups-opentelemetry/protocols"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

const TypeDNSPing stack.TypeID = stack.RootNamespace + "dns.DNS_PING"

// DNSPing discovers members through DNS A or SRV records.
type DNSPing struct {
	protocols.Discovery
	DNSQuery      string
	DNSRecordType string
	DNSAddress    string
}

func (*DNSPing) TypeID() stack.TypeID { return TypeDNSPing }
