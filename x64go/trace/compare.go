package trace

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Channel names the trace sequence that diverged.
type Channel string

const (
	ChannelIP  Channel = "IP"
	ChannelMem Channel = "MEM"
)

// Divergence describes the first difference between two traces.
type Divergence struct {
	Channel Channel
	// Index is the first differing position in the channel's sequence.
	Index int
	// Baseline and Current are the values at Index. A missing value (one
	// sequence is a prefix of the other) is reported through the Has flags.
	Baseline    uint64
	Current     uint64
	HasBaseline bool
	HasCurrent  bool
	// Step and IP locate the instruction in the current trace responsible
	// for the divergence. Step is -1 when it cannot be attributed.
	Step int
	IP   uint64
}

func (d *Divergence) Error() string {
	return fmt.Sprintf("%s divergence at index %d (step %d, ip %#x): baseline %s, current %s",
		d.Channel, d.Index, d.Step, d.IP, value(d.Baseline, d.HasBaseline), value(d.Current, d.HasCurrent))
}

func value(v uint64, ok bool) string {
	if !ok {
		return "<end>"
	}
	return fmt.Sprintf("%#x", v)
}

// Compare checks cur against the baseline prev, instruction addresses first
// and memory addresses second. It returns nil when the traces are equal.
func Compare(prev, cur *Record) *Divergence {
	if !slices.Equal(prev.IPs, cur.IPs) {
		i := firstDiff(prev.IPs, cur.IPs)
		d := newDivergence(ChannelIP, i, prev.IPs, cur.IPs)
		d.Step = i
		if i < len(cur.IPs) {
			d.IP = cur.IPs[i]
		}
		return d
	}
	if !slices.Equal(prev.Mem, cur.Mem) {
		i := firstDiff(prev.Mem, cur.Mem)
		d := newDivergence(ChannelMem, i, prev.Mem, cur.Mem)
		d.Step = cur.StepOfMem(i)
		if d.Step < 0 {
			d.Step = prev.StepOfMem(i)
		}
		if d.Step >= 0 && d.Step < len(cur.IPs) {
			d.IP = cur.IPs[d.Step]
		}
		return d
	}
	return nil
}

func firstDiff(a, b []uint64) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

func newDivergence(ch Channel, i int, a, b []uint64) *Divergence {
	d := &Divergence{Channel: ch, Index: i, Step: -1}
	if i < len(a) {
		d.Baseline, d.HasBaseline = a[i], true
	}
	if i < len(b) {
		d.Current, d.HasCurrent = b[i], true
	}
	return d
}
