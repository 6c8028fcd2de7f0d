package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion is written into every persisted record.
const SchemaVersion = 1

const DateLayout = "2006-01-02"

var ErrUnknownEventType = errors.New("unknown event type")

// TrackEvent is an immutable fact. Date is stamped once when the event is
// tracked and never recomputed, so a batch flushed after midnight keeps the
// day it was recorded on.
type TrackEvent struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Date      string
	Payload   Payload
}

// DateOf returns the calendar day of t in loc.
func DateOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// ValidDate reports whether date is a YYYY-MM-DD day.
func ValidDate(date string) bool {
	_, err := time.Parse(DateLayout, date)
	return err == nil
}

type record struct {
	SchemaVersion int             `json:"schemaVersion"`
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	Timestamp     time.Time       `json:"timestamp"`
	Date          string          `json:"date"`
	Payload       json.RawMessage `json:"payload"`
}

func (e TrackEvent) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("event %s has no payload", e.ID)
	}
	if e.Payload.Type() != e.Type {
		return nil, fmt.Errorf("event %s: type %s does not match payload %s", e.ID, e.Type, e.Payload.Type())
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return json.Marshal(record{
		SchemaVersion: SchemaVersion,
		ID:            e.ID,
		Type:          e.Type,
		Timestamp:     e.Timestamp,
		Date:          e.Date,
		Payload:       payload,
	})
}

func (e *TrackEvent) UnmarshalJSON(data []byte) error {
	raw := record{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decode, ok := decoders[raw.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, raw.Type)
	}
	payload, err := decode(raw.Payload)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", raw.Type, err)
	}
	*e = TrackEvent{
		ID:        raw.ID,
		Type:      raw.Type,
		Timestamp: raw.Timestamp,
		Date:      raw.Date,
		Payload:   payload,
	}
	return nil
}

func decodeAs[P Payload](raw json.RawMessage) (Payload, error) {
	var p P
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

var decoders = map[EventType]func(json.RawMessage) (Payload, error){
	TypeBrainDump:      decodeAs[BrainDump],
	TypeFocusSelected:  decodeAs[FocusSelected],
	TypeFirstMicro:     decodeAs[FirstMicro],
	TypeMicroStarted:   decodeAs[MicroStarted],
	TypeMicroCompleted: decodeAs[MicroCompleted],
	TypeFlowEntered:    decodeAs[FlowEntered],
	TypeFlowEnded:      decodeAs[FlowEnded],
	TypeStuckTriggered: decodeAs[StuckTriggered],
	TypeStuckReason:    decodeAs[StuckReason],
	TypePivotOffered:   decodeAs[PivotOffered],
	TypePivotChosen:    decodeAs[PivotChosen],
	TypeAbandonExit:    decodeAs[AbandonExit],
	TypeSessionStarted: decodeAs[SessionStarted],
	TypeSessionEnded:   decodeAs[SessionEnded],
	TypeMacroCompleted: decodeAs[MacroCompleted],
	TypeDailyLeftovers: decodeAs[DailyLeftovers],
}
