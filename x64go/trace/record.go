// Package trace holds the per-window execution trace and compares windows.
package trace

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Record is the trace of one window: the address of every single-stepped
// instruction and the effective addresses those instructions touched.
type Record struct {
	IPs []uint64 `json:"ips"`
	Mem []uint64 `json:"mem"`
	// MemCounts[i] is the number of Mem entries contributed by step i.
	MemCounts []uint32 `json:"memCounts"`
}

// Step appends one single-stepped instruction to the record.
func (r *Record) Step(ip uint64, mem []uint64) {
	r.IPs = append(r.IPs, ip)
	r.Mem = append(r.Mem, mem...)
	r.MemCounts = append(r.MemCounts, uint32(len(mem)))
}

func (r *Record) Steps() int {
	return len(r.IPs)
}

func (r *Record) Empty() bool {
	return r == nil || len(r.IPs) == 0
}

// Reset empties the record, keeping the allocated storage.
func (r *Record) Reset() {
	r.IPs = r.IPs[:0]
	r.Mem = r.Mem[:0]
	r.MemCounts = r.MemCounts[:0]
}

func (r *Record) Clone() *Record {
	return &Record{
		IPs:       append([]uint64(nil), r.IPs...),
		Mem:       append([]uint64(nil), r.Mem...),
		MemCounts: append([]uint32(nil), r.MemCounts...),
	}
}

// StepOfMem returns the step that contributed Mem[i], or -1.
func (r *Record) StepOfMem(i int) int {
	seen := 0
	for step, n := range r.MemCounts {
		seen += int(n)
		if i < seen {
			return step
		}
	}
	return -1
}

func (r *Record) Encode() []byte {
	out := make([]byte, 0, 16+8*(len(r.IPs)+len(r.Mem)))
	out = binary.BigEndian.AppendUint64(out, uint64(len(r.IPs)))
	for _, ip := range r.IPs {
		out = binary.BigEndian.AppendUint64(out, ip)
	}
	out = binary.BigEndian.AppendUint64(out, uint64(len(r.Mem)))
	for _, a := range r.Mem {
		out = binary.BigEndian.AppendUint64(out, a)
	}
	return out
}

// Digest commits to the IP and memory sequences. Equal digests mean equal traces.
func (r *Record) Digest() common.Hash {
	return crypto.Keccak256Hash(r.Encode())
}
