package models

import "time"

// FormKind identifies which form a payload belongs to
type FormKind string

const (
	KindEntry     FormKind = "entry"     // приход сырья на склад
	KindExit      FormKind = "exit"      // отгрузка продукции со склада
	KindDispatch  FormKind = "dispatch"  // отправка водителем
	KindReception FormKind = "reception" // приемка водителем
	KindTransfer  FormKind = "transfer"  // перемещение между площадками
)

// AllKinds lists the supported form kinds in display order
var AllKinds = []FormKind{KindEntry, KindExit, KindDispatch, KindReception, KindTransfer}

// Valid reports whether k is one of the known kinds
func (k FormKind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// SubmissionStatus is the delivery state of a queued submission
type SubmissionStatus string

const (
	StatusPending SubmissionStatus = "pending"
	StatusSyncing SubmissionStatus = "syncing"
	StatusFailed  SubmissionStatus = "failed"
)

// Payload is the form content handed over by the presentation layer.
// Fields are opaque to the client core.
type Payload struct {
	Fields map[string]any `json:"fields"`
	// ID is empty for a fresh submission and carries the queue id on redelivery,
	// so the collector can deduplicate replays.
	ID   string   `json:"id,omitempty"`
	Kind FormKind `json:"kind"`
}

// Submission is a payload waiting in the offline queue
type Submission struct {
	SavedAt     time.Time        `json:"savedAt"`
	LastAttempt *time.Time       `json:"lastAttempt,omitempty"` // LastAttempt время последней неудачной попытки
	Payload                      // Payload содержимое формы
	Status      SubmissionStatus `json:"status"`
	LastError   string           `json:"lastError,omitempty"`
	Attempts    int              `json:"attempts"` // Attempts растет только при неудачной доставке
}

// Clone returns a deep enough copy for callers that must not alias the queue
func (s *Submission) Clone() *Submission {
	c := *s
	c.Fields = CloneFields(s.Fields)
	if s.LastAttempt != nil {
		t := *s.LastAttempt
		c.LastAttempt = &t
	}
	return &c
}

// DraftVersion is the schema tag written into every draft
const DraftVersion = "1.0"

// Draft is the single in-progress form snapshot
type Draft struct {
	LastSaved time.Time      `json:"lastSaved"`
	Fields    map[string]any `json:"fields"`
	Kind      FormKind       `json:"kind"`
	Version   string         `json:"version"`
}

// Stats is a diagnostic snapshot of the local store
type Stats struct {
	PendingCount        int   `json:"pendingCount"`
	SyncingCount        int   `json:"syncingCount"` // SyncingCount записи, доставка которых идет сейчас
	FailedCount         int   `json:"failedCount"`
	ApproximateByteSize int64 `json:"approximateByteSize"`
	EstimatedFreeBytes  int64 `json:"estimatedFreeBytes"`
	HasDraft            bool  `json:"hasDraft"`
}

// CloneFields copies a field map one level deep
func CloneFields(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
