package domain

// Selection is one instrument of a basket with its side and weight in percent.
type Selection struct {
	Symbol   string   `json:"symbol" yaml:"symbol"`
	Position Position `json:"position" yaml:"position"`
	Weight   float64  `json:"weight" yaml:"weight"`
}

// Basket ordered set of selections keyed by unique symbol.
type Basket []Selection

// Clone returns a copy that shares no memory with b.
func (b Basket) Clone() Basket {
	if b == nil {
		return nil
	}
	out := make(Basket, len(b))
	copy(out, b)
	return out
}

// Index returns the position of symbol in b or -1.
func (b Basket) Index(symbol string) int {
	symbol = NormalizeSymbol(symbol)
	for i := range b {
		if b[i].Symbol == symbol {
			return i
		}
	}
	return -1
}

// Contains reports whether symbol is part of the basket.
func (b Basket) Contains(symbol string) bool {
	return b.Index(symbol) >= 0
}

// Symbols returns the symbols in basket order.
func (b Basket) Symbols() []string {
	out := make([]string, len(b))
	for i := range b {
		out[i] = b[i].Symbol
	}
	return out
}

// Side returns the selections on the given side, preserving order.
func (b Basket) Side(p Position) Basket {
	var out Basket
	for _, s := range b {
		if s.Position == p {
			out = append(out, s)
		}
	}
	return out
}
