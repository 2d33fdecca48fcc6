package dto

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/smart-allotment-api/internal/models"
)

// FlexBool decodes JSON booleans as well as the "true"/"false" strings sent
// by the legacy allotment frontend.
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*b = false
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*b = false
			return nil
		}
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("invalid boolean %s", string(data))
	}
	*b = FlexBool(v)
	return nil
}

// AllotmentConstraints tunes one bulk run. Missing fields fall back to the
// service defaults.
type AllotmentConstraints struct {
	MinGap    *int           `json:"minGap" validate:"omitempty,min=0,max=1440"`
	AllowOver FlexBool       `json:"allowOver"`
	Weights   map[string]int `json:"weights"`
}

// RunAllotmentRequest is the bulk allotment payload.
type RunAllotmentRequest struct {
	Rooms       []models.Room             `json:"rooms" validate:"required,unique=ID,dive"`
	Requests    []models.AllotmentRequest `json:"requests" validate:"required,dive"`
	Constraints AllotmentConstraints      `json:"constraints"`
}
