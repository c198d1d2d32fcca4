// Package decode turns raw broker payloads into normalized readings.
package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/caiomathol/weatherwatch/internal/domain"
)

// ErrMalformedPayload marks a payload that is not a JSON object with
// numeric temperature and humidity fields.
var ErrMalformedPayload = errors.New("malformed telemetry payload")

// Decoder parses telemetry payloads. The timestamp of every reading is
// taken from the decoder's clock at call time; device clocks are
// unsynchronized and any timestamp inside the payload is ignored.
type Decoder struct {
	now func() time.Time
}

func New() *Decoder {
	return &Decoder{now: time.Now}
}

// NewWithClock is for tests that need a deterministic arrival time.
func NewWithClock(now func() time.Time) *Decoder {
	return &Decoder{now: now}
}

// Decode parses one broker message. The topic becomes the reading's
// source id.
func (d *Decoder) Decode(topic string, payload []byte) (domain.Reading, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return domain.Reading{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	temp, err := numericField(fields, "temperature")
	if err != nil {
		return domain.Reading{}, err
	}
	hum, err := numericField(fields, "humidity")
	if err != nil {
		return domain.Reading{}, err
	}

	return domain.Reading{
		Temperature: temp,
		Humidity:    hum,
		Timestamp:   d.now(),
		SourceID:    topic,
	}, nil
}

func numericField(fields map[string]json.RawMessage, name string) (float64, error) {
	raw, ok := fields[name]
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedPayload, name)
	}
	// Unmarshal into a pointer so JSON null is caught instead of
	// silently becoming zero.
	var v *float64
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return 0, fmt.Errorf("%w: %s is not numeric", ErrMalformedPayload, name)
	}
	return *v, nil
}
