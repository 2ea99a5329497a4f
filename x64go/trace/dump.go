package trace

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/afero"
)

// Dump is the on-disk form of a Record.
type Dump struct {
	Window    int              `json:"window"`
	Digest    common.Hash      `json:"digest"`
	IPs       []hexutil.Uint64 `json:"ips"`
	Mem       []hexutil.Uint64 `json:"mem"`
	MemCounts []uint32         `json:"memCounts"`
}

func NewDump(window int, r *Record) *Dump {
	d := &Dump{
		Window:    window,
		Digest:    r.Digest(),
		IPs:       make([]hexutil.Uint64, len(r.IPs)),
		Mem:       make([]hexutil.Uint64, len(r.Mem)),
		MemCounts: append([]uint32(nil), r.MemCounts...),
	}
	for i, v := range r.IPs {
		d.IPs[i] = hexutil.Uint64(v)
	}
	for i, v := range r.Mem {
		d.Mem[i] = hexutil.Uint64(v)
	}
	return d
}

// Record converts the dump back, checking the stored digest.
func (d *Dump) Record() (*Record, error) {
	r := &Record{
		IPs:       make([]uint64, len(d.IPs)),
		Mem:       make([]uint64, len(d.Mem)),
		MemCounts: append([]uint32(nil), d.MemCounts...),
	}
	for i, v := range d.IPs {
		r.IPs[i] = uint64(v)
	}
	for i, v := range d.Mem {
		r.Mem[i] = uint64(v)
	}
	if d.Digest != (common.Hash{}) && r.Digest() != d.Digest {
		return nil, fmt.Errorf("digest mismatch: stored %s, computed %s", d.Digest, r.Digest())
	}
	return r, nil
}

// WriteJSON writes value to path on fs, gzip-compressed when path ends in .gz.
func WriteJSON[X any](fs afero.Fs, path string, value X) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create dir %q: %w", dir, err)
		}
	}
	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()
	var out io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		out = gz
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("failed to encode %q: %w", path, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("failed to flush %q: %w", path, err)
		}
	}
	return f.Close()
}

// LoadJSON reads a value written by WriteJSON.
func LoadJSON[X any](fs afero.Fs, path string) (*X, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()
	var in io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read gzip header of %q: %w", path, err)
		}
		defer gz.Close()
		in = gz
	}
	var x X
	if err := json.NewDecoder(in).Decode(&x); err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", path, err)
	}
	return &x, nil
}

// Store writes and loads window dumps.
type Store struct {
	Fs  afero.Fs
	Dir string
	// Format is the file name pattern with one %d verb for the window number.
	Format string
}

func (s *Store) Path(window int) string {
	return filepath.Join(s.Dir, fmt.Sprintf(s.Format, window))
}

func (s *Store) Write(window int, r *Record) (string, error) {
	path := s.Path(window)
	return path, WriteJSON(s.Fs, path, NewDump(window, r))
}

// Load reads a dump written by Store.Write or WriteJSON.
func Load(fs afero.Fs, path string) (*Dump, *Record, error) {
	d, err := LoadJSON[Dump](fs, path)
	if err != nil {
		return nil, nil, err
	}
	r, err := d.Record()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, r, nil
}
