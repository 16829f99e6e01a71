package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleArgs struct {
	City  string  `json:"city" description:"City name"`
	Days  *int    `json:"days" description:"Forecast days"`
	Scale string  `json:"scale,omitempty"`
	Lat   float64 `json:"lat"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(sampleArgs{})
	props := schema["properties"].(map[string]any)
	assert.Contains(t, props, "city")
	assert.Contains(t, props, "days")
	assert.Contains(t, props, "scale")
	assert.Equal(t, "City name", props["city"].(map[string]any)["description"])
	assert.Equal(t, "number", props["lat"].(map[string]any)["type"])
	assert.ElementsMatch(t, []string{"city", "lat"}, schema["required"])
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
		},
		"required": []any{"x"},
	}

	assert.NoError(t, ValidateParameters(map[string]any{"x": 5}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"x": float64(7)}, schema))

	err := ValidateParameters(map[string]any{}, schema)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Equal(t, "x", vErr.Field)

	err = ValidateParameters(map[string]any{"x": "nope"}, schema)
	assert.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "expected type integer")
}

func TestInterpolate(t *testing.T) {
	data := map[string]any{
		"city": "Berlin",
		"geo":  map[string]any{"lat": 52.52},
	}

	assert.Equal(t, "plain", Interpolate("plain", data))
	assert.Equal(t, "q=Berlin", Interpolate("q=[[city]]", data))
	assert.Equal(t, "lat=52.52", Interpolate("lat=[[geo.lat]]", data))
	// Unresolved placeholders stay verbatim.
	assert.Equal(t, "q=[[missing]]", Interpolate("q=[[missing]]", data))
	assert.Equal(t, "q=Berlin&x=[[nope]]", Interpolate("q=[[ city ]]&x=[[nope]]", data))
}
