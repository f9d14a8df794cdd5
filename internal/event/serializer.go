// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

package event

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Validatable is implemented by payloads that can check their own fields.
type Validatable interface {
	Validate() error
}

// Marshal validates a payload and encodes it as JSON.
func Marshal(payload Validatable) ([]byte, error) {
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("validate payload: %w", err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return data, nil
}

// Unmarshal decodes JSON into the payload and validates the result.
func Unmarshal(data []byte, payload Validatable) error {
	if err := json.Unmarshal(data, payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("validate payload: %w", err)
	}
	return nil
}
