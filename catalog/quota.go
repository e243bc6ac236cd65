package catalog

// Ledger tracks durable usage against a fixed logical capacity and answers
// admission queries for prospective writes.
//
// Used bytes are recomputed from the persisted store on every query rather
// than maintained as a running counter. A counter would drift on partial or
// failed writes; the store itself is the single ground truth.
type Ledger struct {
	store    *KVStore
	capacity int64
}

// NewLedger creates a ledger over the durable namespace of store.
func NewLedger(store *KVStore, capacity int64) *Ledger {
	return &Ledger{store: store, capacity: capacity}
}

// CanAdmit reports whether a write of candidateTotal bytes — the serialized
// size of the whole catalog after the mutation, measured on the real payload
// rather than estimated per-image — fits the remaining headroom. The headroom
// comparison is deliberately pessimistic: persisted encoding overhead is
// non-linear, so the full prospective payload is held against what is left of
// the capacity.
func (l *Ledger) CanAdmit(candidateTotal int64) (bool, error) {
	used, err := l.store.UsedBytes()
	if err != nil {
		return false, err
	}
	return candidateTotal <= l.capacity-used, nil
}

// UsedBytes returns current durable usage.
func (l *Ledger) UsedBytes() (int64, error) {
	return l.store.UsedBytes()
}

// UsageFraction returns used/capacity in [0, 1+).
func (l *Ledger) UsageFraction() (float64, error) {
	used, err := l.store.UsedBytes()
	if err != nil {
		return 0, err
	}
	if l.capacity <= 0 {
		return 0, nil
	}
	return float64(used) / float64(l.capacity), nil
}

// Info returns the quota status shown by the storefront.
func (l *Ledger) Info() (StorageInfo, error) {
	used, err := l.store.UsedBytes()
	if err != nil {
		return StorageInfo{}, err
	}
	return StorageInfo{UsedBytes: used, CapacityBytes: l.capacity}, nil
}
