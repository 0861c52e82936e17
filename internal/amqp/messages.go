package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// RecordKind names the collection a RecordCreatedMessage refers to.
type RecordKind string

const (
	KindStudent     RecordKind = "student"
	KindInscription RecordKind = "inscription"
	KindPayment     RecordKind = "payment"
	KindTransaction RecordKind = "transaction"
)

// ReportRequestedMessage asks the worker to build the monthly export for a month.
type ReportRequestedMessage struct {
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewReportRequestedMessage(year, month int) *ReportRequestedMessage {
	return &ReportRequestedMessage{Year: year, Month: month, RequestedAt: time.Now()}
}

func (m *ReportRequestedMessage) Validate() error {
	if m.Year < 2000 || m.Year > 9999 || m.Month < 1 || m.Month > 12 {
		return fmt.Errorf("invalid report month %04d-%02d", m.Year, m.Month)
	}
	return nil
}

func (m *ReportRequestedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportRequestedMessageFromJSON decodes and validates a report request.
func ReportRequestedMessageFromJSON(data []byte) (*ReportRequestedMessage, error) {
	var msg ReportRequestedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// RecordCreatedMessage announces a newly persisted record. It carries only
// the kind and id; consumers re-read the store when they need more.
type RecordCreatedMessage struct {
	Kind      RecordKind `json:"kind"`
	ID        string     `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewRecordCreatedMessage(kind RecordKind, id string) *RecordCreatedMessage {
	return &RecordCreatedMessage{Kind: kind, ID: id, Timestamp: time.Now()}
}

func (m *RecordCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordCreatedMessageFromJSON(data []byte) (*RecordCreatedMessage, error) {
	var msg RecordCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" || msg.ID == "" {
		return nil, fmt.Errorf("record created message missing kind or id")
	}
	return &msg, nil
}
