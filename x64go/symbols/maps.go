package symbols

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const pageSize = 4096

// Region is one line of /proc/<pid>/maps.
type Region struct {
	Start  uint64
	End    uint64
	Perms  string
	Offset uint64
	Path   string
}

func (r Region) Contains(addr uint64) bool {
	return addr >= r.Start && addr < r.End
}

func (r Region) Executable() bool {
	return strings.Contains(r.Perms, "x")
}

func parseRegion(line string) (Region, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return Region{}, fmt.Errorf("malformed maps line %q", line)
	}
	start, end, ok := strings.Cut(fields[0], "-")
	if !ok {
		return Region{}, fmt.Errorf("malformed address range %q", fields[0])
	}
	var r Region
	var err error
	if r.Start, err = strconv.ParseUint(start, 16, 64); err != nil {
		return Region{}, fmt.Errorf("bad region start %q: %w", start, err)
	}
	if r.End, err = strconv.ParseUint(end, 16, 64); err != nil {
		return Region{}, fmt.Errorf("bad region end %q: %w", end, err)
	}
	r.Perms = fields[1]
	if r.Offset, err = strconv.ParseUint(fields[2], 16, 64); err != nil {
		return Region{}, fmt.Errorf("bad region offset %q: %w", fields[2], err)
	}
	// dev and inode are ignored
	if len(fields) > 5 {
		r.Path = strings.Join(fields[5:], " ")
	}
	return r, nil
}

// ParseMaps parses the /proc/<pid>/maps format.
func ParseMaps(rd io.Reader) ([]Region, error) {
	var out []Region
	sc := bufio.NewScanner(rd)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		r, err := parseRegion(line)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, sc.Err()
}

func ReadMaps(pid int) ([]Region, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseMaps(f)
}
