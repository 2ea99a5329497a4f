package trace

import "fmt"

// HexU64 lazy-formats addresses for logging.
type HexU64 uint64

func (v HexU64) String() string {
	return fmt.Sprintf("%016x", uint64(v))
}

func (v HexU64) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}
