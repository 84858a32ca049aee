package core

// Ledger is the append-only list of executed trades with a per-owner index.
// Both the resting and the aggressing owner of a trade can find it.
type Ledger struct {
	trades  []Trade
	byOwner map[string][]int
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{byOwner: make(map[string][]int)}
}

// Append records a trade
func (l *Ledger) Append(t Trade) {
	i := len(l.trades)
	l.trades = append(l.trades, t)
	l.byOwner[t.AggressorOwnerID] = append(l.byOwner[t.AggressorOwnerID], i)
	if t.RestingOwnerID != t.AggressorOwnerID {
		l.byOwner[t.RestingOwnerID] = append(l.byOwner[t.RestingOwnerID], i)
	}
}

// All returns every trade in execution order
func (l *Ledger) All() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// ForOwner returns the trades the owner took part in, in execution order
func (l *Ledger) ForOwner(owner string) []Trade {
	idx := l.byOwner[owner]
	out := make([]Trade, 0, len(idx))
	for _, i := range idx {
		out = append(out, l.trades[i])
	}
	return out
}

// Last returns the most recent trade
func (l *Ledger) Last() (Trade, bool) {
	if len(l.trades) == 0 {
		return Trade{}, false
	}
	return l.trades[len(l.trades)-1], true
}

// Len returns the number of trades
func (l *Ledger) Len() int {
	return len(l.trades)
}
