package trace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func record(steps ...[]uint64) *Record {
	r := &Record{}
	for i, s := range steps {
		r.Step(0x1000+uint64(i), s)
	}
	return r
}

func TestRecordStep(t *testing.T) {
	r := record(nil, []uint64{0x10, 0x20}, []uint64{0x30})
	require.Equal(t, []uint64{0x1000, 0x1001, 0x1002}, r.IPs)
	require.Equal(t, []uint64{0x10, 0x20, 0x30}, r.Mem)
	require.Equal(t, []uint32{0, 2, 1}, r.MemCounts)
	require.Equal(t, 3, r.Steps())
	require.Equal(t, 1, r.StepOfMem(0))
	require.Equal(t, 1, r.StepOfMem(1))
	require.Equal(t, 2, r.StepOfMem(2))
	require.Equal(t, -1, r.StepOfMem(3))

	c := r.Clone()
	r.Reset()
	require.True(t, r.Empty())
	require.Equal(t, 3, c.Steps())
	require.Equal(t, []uint64{0x10, 0x20, 0x30}, c.Mem)
}

func TestDigest(t *testing.T) {
	a := record([]uint64{0x10}, []uint64{0x20})
	b := record([]uint64{0x10}, []uint64{0x20})
	require.Equal(t, a.Digest(), b.Digest())

	// Same flat memory sequence, different IPs.
	c := record([]uint64{0x10, 0x20})
	require.NotEqual(t, a.Digest(), c.Digest())

	// Moving an address between the channels changes the digest.
	d := &Record{IPs: []uint64{0x1000}, Mem: []uint64{0x1001, 0x10, 0x20}}
	e := &Record{IPs: []uint64{0x1000, 0x1001}, Mem: []uint64{0x10, 0x20}}
	require.NotEqual(t, d.Digest(), e.Digest())
}

func TestCompareEqual(t *testing.T) {
	a := record([]uint64{0x10}, nil, []uint64{0x20, 0x28})
	b := record([]uint64{0x10}, nil, []uint64{0x20, 0x28})
	require.Nil(t, Compare(a, b))
	require.Nil(t, Compare(&Record{}, &Record{}))
}

func TestCompareIP(t *testing.T) {
	a := record(nil, nil, nil)
	b := record(nil, nil, nil)
	b.IPs[1] = 0x2000
	// Memory differs too, IPs are reported first.
	b.Mem = append(b.Mem, 0x99)

	d := Compare(a, b)
	require.NotNil(t, d)
	require.Equal(t, ChannelIP, d.Channel)
	require.Equal(t, 1, d.Index)
	require.Equal(t, uint64(0x1001), d.Baseline)
	require.Equal(t, uint64(0x2000), d.Current)
	require.Equal(t, 1, d.Step)
	require.Equal(t, uint64(0x2000), d.IP)
	require.Contains(t, d.Error(), "IP divergence at index 1")
}

func TestComparePrefix(t *testing.T) {
	a := record(nil, nil, nil)
	b := record(nil, nil)
	d := Compare(a, b)
	require.NotNil(t, d)
	require.Equal(t, ChannelIP, d.Channel)
	require.Equal(t, 2, d.Index)
	require.True(t, d.HasBaseline)
	require.False(t, d.HasCurrent)
	require.Contains(t, d.Error(), "current <end>")
}

func TestCompareMem(t *testing.T) {
	a := record([]uint64{0x10}, []uint64{0x20, 0x30})
	b := record([]uint64{0x10}, []uint64{0x20, 0x38})
	d := Compare(a, b)
	require.NotNil(t, d)
	require.Equal(t, ChannelMem, d.Channel)
	require.Equal(t, 2, d.Index)
	require.Equal(t, uint64(0x30), d.Baseline)
	require.Equal(t, uint64(0x38), d.Current)
	require.Equal(t, 1, d.Step)
	require.Equal(t, uint64(0x1001), d.IP)
}
