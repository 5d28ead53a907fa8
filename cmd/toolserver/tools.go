package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/germanamz/mcpchat/pkg/tools/toolbox"
)

var conditions = []string{"Sunny", "Partly cloudy", "Overcast", "Light rain", "Windy"}

func locationTool(location string) toolbox.Tool {
	return toolbox.Tool{
		Name:        "get_location",
		Description: "Returns the user's current location as a city and country.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
		Handler: func(context.Context, json.RawMessage) (string, error) {
			return location, nil
		},
	}
}

type weatherInput struct {
	City string `json:"city"`
}

// weatherTool answers with a fixed report derived from the city name, so the
// same city always gets the same weather.
func weatherTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "get_weather",
		Description: "Returns the current weather for a city.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"city":{"type":"string","description":"City name, optionally with country"}},"required":["city"]}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in weatherInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", fmt.Errorf("invalid input: %w", err)
			}
			city := strings.TrimSpace(in.City)
			if city == "" {
				return "", errors.New("city is required")
			}

			h := fnv.New32a()
			_, _ = h.Write([]byte(strings.ToLower(city)))
			sum := h.Sum32()

			return fmt.Sprintf("%s in %s, %d°C", conditions[sum%uint32(len(conditions))], city, 5+int(sum%25)), nil
		},
	}
}
