package orb

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/broady/orb/internal/apijson"
	"github.com/broady/orb/internal/apiquery"
	"github.com/broady/orb/internal/requestconfig"
	"github.com/broady/orb/option"
)

// EventService ingests usage events.
type EventService struct {
	Options []option.RequestOption
}

func NewEventService(opts ...option.RequestOption) (r EventService) {
	r = EventService{}
	r.Options = opts
	return
}

// Ingest sends a batch of usage events. Events are deduplicated by
// IdempotencyKey, so a batch can be resent safely after a failure.
//
// Events that fail validation are reported in the response rather than
// failing the whole batch.
func (r *EventService) Ingest(ctx context.Context, params EventIngestParams, opts ...option.RequestOption) (res *EventIngestResponse, err error) {
	opts = slices.Concat(r.Options, opts)
	path := "ingest"
	err = requestconfig.ExecuteNewRequest(ctx, http.MethodPost, path, params, &res, opts...)
	return
}

// NewIdempotencyKey returns a fresh time-ordered key for [EventParam].
func NewIdempotencyKey() string {
	return uuid.Must(uuid.NewV7()).String()
}

type EventIngestParams struct {
	Events []EventParam `json:"events,required" query:"-" validate:"min=1,max=500"`
	// BackfillID routes the events into an open backfill.
	BackfillID *string `json:"-" query:"backfill_id,omitempty"`
	// Debug asks for the ingested and duplicate keys in the response.
	Debug *bool `json:"-" query:"debug,omitempty"`
}

func (r EventIngestParams) URLQuery() (url.Values, error) { return apiquery.Marshal(r) }

type EventParam struct {
	EventName      string         `json:"event_name,required"`
	IdempotencyKey string         `json:"idempotency_key,required"`
	Timestamp      time.Time      `json:"timestamp,required"`
	Properties     map[string]any `json:"properties,required"`

	CustomerID         Field[string] `json:"customer_id,omitzero"`
	ExternalCustomerID Field[string] `json:"external_customer_id,omitzero"`
}

type EventIngestResponse struct {
	ValidationFailed []EventValidationFailure `json:"validation_failed,required"`
	// Debug is only present when the request set Debug.
	Debug *EventIngestDebug `json:"debug"`
	JSON  apijson.Fields    `json:"-"`
}

func (r *EventIngestResponse) UnmarshalJSON(data []byte) error {
	type shadow EventIngestResponse
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r EventIngestResponse) MarshalJSON() ([]byte, error) {
	type shadow EventIngestResponse
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type EventValidationFailure struct {
	IdempotencyKey   string         `json:"idempotency_key,required"`
	ValidationErrors []string       `json:"validation_errors,required"`
	JSON             apijson.Fields `json:"-"`
}

func (r *EventValidationFailure) UnmarshalJSON(data []byte) error {
	type shadow EventValidationFailure
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r EventValidationFailure) MarshalJSON() ([]byte, error) {
	type shadow EventValidationFailure
	return apijson.Marshal((*shadow)(&r), r.JSON)
}

type EventIngestDebug struct {
	Duplicate []string       `json:"duplicate,required"`
	Ingested  []string       `json:"ingested,required"`
	JSON      apijson.Fields `json:"-"`
}

func (r *EventIngestDebug) UnmarshalJSON(data []byte) error {
	type shadow EventIngestDebug
	return apijson.Unmarshal(data, (*shadow)(r), &r.JSON)
}

func (r EventIngestDebug) MarshalJSON() ([]byte, error) {
	type shadow EventIngestDebug
	return apijson.Marshal((*shadow)(&r), r.JSON)
}
