package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// AssetPayload is the body of every asset.* event.
type AssetPayload struct {
	AssetID          string     `json:"asset_id"`
	OwnerID          *int64     `json:"owner_id,omitempty"`
	StorageKey       string     `json:"storage_key"`
	OriginalFilename string     `json:"original_filename,omitempty"`
	ContentType      string     `json:"content_type,omitempty"`
	Status           string     `json:"status"`
	SizeBytes        *int64     `json:"size_bytes,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

func NewAssetEnvelope(eventType string, payload AssetPayload) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateType: AggregateTypeAsset,
		AggregateID:   payload.AssetID,
		OccurredAt:    time.Now().UTC(),
		Payload:       raw,
	}, nil
}

// DecodePayload unmarshals the envelope payload into an AssetPayload.
func (e Envelope) DecodePayload() (AssetPayload, error) {
	var p AssetPayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}
