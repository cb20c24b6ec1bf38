package pipeline

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/theirongolddev/costcast/internal/model"
)

// Fingerprint hashes a series independently of map iteration order.
func Fingerprint(s model.DailyCostSeries) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, day := range s.Dates() {
		_, _ = d.WriteString(day)
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(s[day]))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
