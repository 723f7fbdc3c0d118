package ai

import (
	"bytes"
	"encoding/json"
	"strconv"

	"dinecall/internal/modules/slots"
)

// SlotExtraction captures the structured output requested from hosted models.
type SlotExtraction struct {
	Cuisine       flexString `json:"cuisine"`
	Location      flexString `json:"location"`
	Budget        flexString `json:"budget"`
	TravelMode    flexString `json:"travel_mode"`
	TravelMinutes flexString `json:"travel_minutes"`
	OpenNow       flexString `json:"open_now"`

	// Note is a short free-text remark from the model (e.g. "caller corrected cuisine").
	Note string `json:"note,omitempty"`
}

// ToUpdate converts the extraction into raw slot values. Null fields are omitted.
func (e SlotExtraction) ToUpdate() slots.Update {
	u := slots.Update{Values: map[slots.Name]string{}, Note: e.Note}
	set := func(n slots.Name, v flexString) {
		if v != "" {
			u.Values[n] = string(v)
		}
	}
	set(slots.Cuisine, e.Cuisine)
	set(slots.Location, e.Location)
	set(slots.Budget, e.Budget)
	set(slots.TravelMode, e.TravelMode)
	set(slots.TravelMinutes, e.TravelMinutes)
	set(slots.OpenNow, e.OpenNow)
	return u
}

// flexString accepts JSON strings, numbers, booleans and null; models are not
// consistent about quoting numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = flexString(strconv.FormatBool(v))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		if i, err := n.Int64(); err == nil {
			*f = flexString(strconv.FormatInt(i, 10))
			return nil
		}
		if fl, err := n.Float64(); err == nil {
			*f = flexString(strconv.Itoa(int(fl)))
			return nil
		}
		*f = flexString(n.String())
	}
	return nil
}
