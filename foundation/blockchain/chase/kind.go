package chase

// Kind identifies the category of chain state change an event reports.
type Kind uint8

// Set of event kinds.
const (
	KindStop        Kind = iota + 1 // The bus is shutting down; status carries the reason.
	KindFull                        // A write hit capacity exhaustion; value payload carries the height.
	KindSuspend                     // Network traffic was suspended.
	KindResume                      // Capacity was restored and writes may continue.
	KindStore                       // A transaction was stored by another source; tx payload.
	KindTransaction                 // A new unconfirmed transaction is tracked; tx payload.
	KindConfirmed                   // A block was confirmed; header payload.
	KindCandidate                   // A new candidate was built; header payload.
	KindTemplate                    // A new mining template was built; value payload carries the height.
)

var kindNames = map[Kind]string{
	KindStop:        "stop",
	KindFull:        "full",
	KindSuspend:     "suspend",
	KindResume:      "resume",
	KindStore:       "store",
	KindTransaction: "transaction",
	KindConfirmed:   "confirmed",
	KindCandidate:   "candidate",
	KindTemplate:    "template",
}

// String implements the fmt.Stringer interface for logging.
func (k Kind) String() string {
	if name, exists := kindNames[k]; exists {
		return name
	}
	return "unknown"
}

// MarshalText implements the encoding.TextMarshaler interface.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
