package vitals

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidReading matches every validation failure produced by this package.
var ErrInvalidReading = errors.New("invalid vitals reading")

// ValidationError reports a missing or malformed reading field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Is lets callers test any validation failure with errors.Is(err, ErrInvalidReading).
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidReading
}

// FormatError reports a composite field (blood pressure) that cannot be split into its parts.
// It unwraps to a *ValidationError for the same field.
type FormatError struct {
	Field string
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s %q is not in systolic/diastolic form", e.Field, e.Value)
}

func (e *FormatError) Unwrap() error {
	return &ValidationError{Field: e.Field, Reason: "must look like 120/80"}
}

// Reading is one timestamped set of measurements. Once recorded it is never modified.
type Reading struct {
	HeartRate    float64   `json:"heart_rate"`
	SpO2         float64   `json:"spo2"`
	Systolic     int       `json:"systolic"`
	Diastolic    int       `json:"diastolic"`
	TemperatureF float64   `json:"temperature_f"`
	Steps        int       `json:"steps"`
	TakenAt      time.Time `json:"taken_at"`
}

// BloodPressure renders the pressure pair the way users type it, e.g. "120/80".
func (r Reading) BloodPressure() string {
	return fmt.Sprintf("%d/%d", r.Systolic, r.Diastolic)
}

// Field is an optional measurement exactly as a client sent it: a JSON number,
// a numeric string, or nothing at all. An absent field never turns into zero.
type Field struct {
	Raw string
	Set bool
}

// Num builds a present numeric field.
func Num(v float64) Field {
	return Field{Raw: strconv.FormatFloat(v, 'f', -1, 64), Set: true}
}

// Text builds a present field from its textual form.
func Text(s string) Field {
	s = strings.TrimSpace(s)
	return Field{Raw: s, Set: s != ""}
}

// UnmarshalJSON accepts numbers, strings and null.
func (f *Field) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		*f = Field{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*f = Text(str)
		return nil
	}
	*f = Field{Raw: s, Set: true}
	return nil
}

// MarshalJSON writes the raw value back as a string, or null when absent.
func (f Field) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Raw)
}

// Input is the client payload for one reading. Every field is optional at the
// wire level and required by Reading.
type Input struct {
	HeartRate     Field      `json:"heart_rate"`
	SpO2          Field      `json:"spo2"`
	BloodPressure Field      `json:"bp"`
	TemperatureF  Field      `json:"temperature_f"`
	Steps         Field      `json:"steps"`
	TakenAt       *time.Time `json:"taken_at,omitempty"`
}

// Reading converts the payload into a Reading. TakenAt falls back to now.
// The first missing or malformed field is reported.
func (in Input) Reading(now time.Time) (Reading, error) {
	var r Reading
	var err error

	if r.HeartRate, err = parseFloat("heart_rate", in.HeartRate, 1, 300); err != nil {
		return Reading{}, err
	}
	if r.SpO2, err = parseFloat("spo2", in.SpO2, 1, 100); err != nil {
		return Reading{}, err
	}
	if !in.BloodPressure.Set {
		return Reading{}, &ValidationError{Field: "bp", Reason: "is required"}
	}
	if r.Systolic, r.Diastolic, err = ParseBloodPressure(in.BloodPressure.Raw); err != nil {
		return Reading{}, err
	}
	if r.TemperatureF, err = parseFloat("temperature_f", in.TemperatureF, 70, 115); err != nil {
		return Reading{}, err
	}
	if r.Steps, err = parseSteps(in.Steps); err != nil {
		return Reading{}, err
	}

	r.TakenAt = now
	if in.TakenAt != nil && !in.TakenAt.IsZero() {
		r.TakenAt = *in.TakenAt
	}
	return r, nil
}

// ParseBloodPressure splits "120/80" into systolic and diastolic values.
func ParseBloodPressure(s string) (int, int, error) {
	raw := strings.TrimSpace(s)
	parts := strings.Split(raw, "/")
	if len(parts) != 2 {
		return 0, 0, &FormatError{Field: "bp", Value: s}
	}
	sys, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	dia, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, &FormatError{Field: "bp", Value: s}
	}
	if sys <= 0 || sys > 400 || dia <= 0 || dia > 400 {
		return 0, 0, &ValidationError{Field: "bp", Reason: "is out of range"}
	}
	return sys, dia, nil
}

func parseFloat(name string, f Field, min, max float64) (float64, error) {
	if !f.Set {
		return 0, &ValidationError{Field: name, Reason: "is required"}
	}
	v, err := strconv.ParseFloat(f.Raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Field: name, Reason: "must be a number"}
	}
	if v < min || v > max {
		return 0, &ValidationError{Field: name, Reason: fmt.Sprintf("must be between %g and %g", min, max)}
	}
	return v, nil
}

func parseSteps(f Field) (int, error) {
	if !f.Set {
		return 0, &ValidationError{Field: "steps", Reason: "is required"}
	}
	n, err := strconv.Atoi(f.Raw)
	if err != nil {
		// "6000.0" is accepted, "6000.5" is not
		v, ferr := strconv.ParseFloat(f.Raw, 64)
		if ferr != nil || v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, &ValidationError{Field: "steps", Reason: "must be a whole number"}
		}
		n = int(v)
	}
	if n < 0 {
		return 0, &ValidationError{Field: "steps", Reason: "must not be negative"}
	}
	return n, nil
}
