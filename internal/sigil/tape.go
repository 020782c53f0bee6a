package sigil

import "proteus/internal/model"

func (g Genotype) String() string {
	b := make([]byte, len(g))
	for i, s := range g {
		b[i] = byte(s)
	}
	return string(b)
}

func (g Genotype) Clone() Genotype {
	return append(Genotype(nil), g...)
}

func (p Phenotype) String() string {
	b := make([]byte, len(p))
	for i, bit := range p {
		b[i] = '0' + byte(bit)
	}
	return string(b)
}

func (p Phenotype) Clone() Phenotype {
	return append(Phenotype(nil), p...)
}

// ParseGenotype rejects symbols outside the alphabet.
func ParseGenotype(a Alphabet, s string) (Genotype, error) {
	g := make(Genotype, len(s))
	for i := 0; i < len(s); i++ {
		sig := Sigil(s[i])
		if !a.Contains(sig) {
			return nil, model.NewConfigError("genotype", "symbol %q at cell %d is not in alphabet %s", string(s[i]), i, a.Symbols())
		}
		g[i] = sig
	}
	return g, nil
}

// ParsePhenotype accepts only '0' and '1' characters.
func ParsePhenotype(s string) (Phenotype, error) {
	p := make(Phenotype, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '0':
			p[i] = 0
		case '1':
			p[i] = 1
		default:
			return nil, model.NewConfigError("phenotype", "bit %q at cell %d must be 0 or 1", string(s[i]), i)
		}
	}
	return p, nil
}
