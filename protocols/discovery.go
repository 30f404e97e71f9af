package protocols

import (
	"sync/atomic"

	"github.com/rhusar/jgroups-opentelemetry/stack"
)

// Discovery is the state shared by all discovery protocols.
type Discovery struct {
	coord    atomic.Bool
	requests atomic.Int64
}

// IsCoord reports whether this member is the coordinator.
func (d *Discovery) IsCoord() bool {
	return d.coord.Load()
}

func (d *Discovery) SetCoord(coord bool) {
	d.coord.Store(coord)
}

// DiscoveryRequests returns the number of discovery requests sent.
func (d *Discovery) DiscoveryRequests() int64 {
	return d.requests.Load()
}

// FindMembers records a discovery request.
func (d *Discovery) FindMembers() {
	d.requests.Add(1)
}

type Ping struct{ Discovery }

func (*Ping) TypeID() stack.TypeID { return TypePing }

type MPing struct{ Discovery }

func (*MPing) TypeID() stack.TypeID { return TypeMPing }

type BPing struct{ Discovery }

func (*BPing) TypeID() stack.TypeID { return TypeBPing }

type TCPPing struct {
	Discovery
	InitialHosts []string
}

func (*TCPPing) TypeID() stack.TypeID { return TypeTCPPing }

type TCPGossip struct {
	Discovery
	InitialHosts []string
}

func (*TCPGossip) TypeID() stack.TypeID { return TypeTCPGossip }

type LocalPing struct{ Discovery }

func (*LocalPing) TypeID() stack.TypeID { return TypeLocalPing }

type SharedLoopbackPing struct{ Discovery }

func (*SharedLoopbackPing) TypeID() stack.TypeID { return TypeSharedLoopbackPing }

// FilePing is a discovery protocol persisting member information to shared storage.
// JDBCPing2, RackspacePing and SwiftPing derive from it.
type FilePing struct {
	Discovery
	Location string

	writes atomic.Int64
	reads  atomic.Int64
}

func (*FilePing) TypeID() stack.TypeID { return TypeFilePing }

// Writes returns how many times discovery information was written.
func (f *FilePing) Writes() int64 {
	return f.writes.Load()
}

// Reads returns how many times discovery information was read.
func (f *FilePing) Reads() int64 {
	return f.reads.Load()
}

func (f *FilePing) RecordWrite() {
	f.writes.Add(1)
}

func (f *FilePing) RecordRead() {
	f.reads.Add(1)
}

type JDBCPing2 struct {
	FilePing
	ConnectionURL string
}

func (*JDBCPing2) TypeID() stack.TypeID { return TypeJDBCPing2 }

type RackspacePing struct {
	FilePing
	Container string
}

func (*RackspacePing) TypeID() stack.TypeID { return TypeRackspacePing }

type SwiftPing struct {
	FilePing
	Container string
}

func (*SwiftPing) TypeID() stack.TypeID { return TypeSwiftPing }

// JDBCPing is the legacy JDBC discovery protocol. It does not derive from FilePing.
type JDBCPing struct {
	Discovery
	ConnectionURL string

	writes atomic.Int64
	reads  atomic.Int64
}

func (*JDBCPing) TypeID() stack.TypeID { return TypeJDBCPing }

func (j *JDBCPing) Writes() int64 {
	return j.writes.Load()
}

func (j *JDBCPing) Reads() int64 {
	return j.reads.Load()
}

func (j *JDBCPing) RecordWrite() {
	j.writes.Add(1)
}

func (j *JDBCPing) RecordRead() {
	j.reads.Add(1)
}
