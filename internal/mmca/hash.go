package mmca

import (
	"fmt"
	"hash/fnv"

	"proteus/internal/sigil"
)

// TickHash fingerprints one frozen snapshot: FNV-1a 64 over the genotype
// bytes, a separator, then the raw phenotype bits. Rendered as fixed-width
// hex so hashes compare as plain strings.
func TickHash(g sigil.Genotype, p sigil.Phenotype) string {
	h := fnv.New64a()
	buf := make([]byte, 0, len(g)+1+len(p))
	for _, s := range g {
		buf = append(buf, byte(s))
	}
	buf = append(buf, 0x1f)
	for _, b := range p {
		buf = append(buf, byte(b))
	}
	h.Write(buf)
	return fmt.Sprintf("%016x", h.Sum64())
}

// HistoryHash folds every tick hash into one run fingerprint, so the final
// hash commits to the whole snapshot stream rather than the last tick.
func HistoryHash(tickHashes []string) string {
	h := fnv.New64a()
	for _, th := range tickHashes {
		h.Write([]byte(th))
		h.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
