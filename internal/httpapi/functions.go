package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// decodeJSONBody decodes exactly one JSON value from body. Unknown fields
// and trailing values are rejected so malformed clients fail loudly.
func decodeJSONBody(body io.Reader, dst any) error {
	if body == nil {
		return io.EOF
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	var trailing json.RawMessage
	if err := dec.Decode(&trailing); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return fmt.Errorf("unexpected trailing JSON value")
}
