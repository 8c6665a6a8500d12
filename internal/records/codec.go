// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package records

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Encode converts a tagged struct into a Record via its JSON form.
func Encode(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return decodeRecord(data)
}

// Decode fills dst from rec via its JSON form.
func Decode(rec Record, dst any) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}
