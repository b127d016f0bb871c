// Package schemas holds the data types and interfaces shared between the
// automation core, the batch runner, and the trigger boundary.
package schemas

import (
	"fmt"
	"strings"
	"time"
)

// Status enumerates the per-recipient terminal outcomes persisted in the
// history log. The string values are the on-disk format and must not change.
type Status string

const (
	StatusSuccess         Status = "Success"
	StatusInvalidNumber   Status = "Invalid Number"
	StatusChatNotReady    Status = "Chat Not Ready"
	StatusImageUploadFail Status = "Image Upload Fail"
	StatusSendFail        Status = "Send Fail"
	StatusDeleteSuccess   Status = "Delete Success"
	StatusDeleteFail      Status = "Delete Fail"
	StatusNoSentMessages  Status = "No Sent Messages"
)

// BatchMode selects which per-recipient workflow a batch executes.
type BatchMode string

const (
	ModeSend   BatchMode = "send"
	ModeDelete BatchMode = "delete"
)

// OutcomeRecord is one logged result for one recipient within a batch.
// Records are append-only; ordering in the log is processing order.
type OutcomeRecord struct {
	Timestamp time.Time
	Recipient string // normalized (digits only)
	Status    Status
	Detail    string
}

// NormalizeRecipient strips every non-digit character from a phone-number-like
// identifier. The result is a contiguous digit string; an empty result means
// the recipient must be skipped before any automation call. Idempotent.
func NormalizeRecipient(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ChatTarget identifies a direct conversation, derived from a normalized
// recipient plus the configured country-code prefix. It is recomputed per
// recipient and never persisted.
type ChatTarget struct {
	CountryCode string
	Number      string // normalized digits
}

// DeepLink returns the URL that opens the direct chat for this target.
func (t ChatTarget) DeepLink() string {
	return fmt.Sprintf("https://web.whatsapp.com/send/?phone=%s%s&text=", t.CountryCode, t.Number)
}

// Contact is one entry in the contact store.
type Contact struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// SendRequest is the trigger-boundary payload for both the send and delete
// endpoints; the delete endpoint ignores Message.
type SendRequest struct {
	Message string   `json:"message"`
	Numbers []string `json:"numbers"`
}

// AckResponse is the immediate acknowledgement returned by the trigger
// boundary, independent of the batch outcome.
type AckResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	BatchID string `json:"batchId,omitempty"`
}

// HistoryEntry is the wire form of one parsed outcome log line.
type HistoryEntry struct {
	Timestamp string `json:"timestamp"`
	Number    string `json:"number"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// DefaultsResponse carries the persisted default message text.
type DefaultsResponse struct {
	DefaultMessage string `json:"defaultMessage"`
}
