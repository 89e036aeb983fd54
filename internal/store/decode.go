package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var rowValidator = validator.New()

// DecodeError reports a stored row that does not satisfy its schema.
type DecodeError struct {
	Collection string
	ID         string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s/%s: %v", e.Collection, e.ID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is (or wraps) a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Check validates a freshly scanned row against its `validate` tags.
func Check(collection, id string, row any) error {
	if err := rowValidator.Struct(row); err != nil {
		return &DecodeError{Collection: collection, ID: id, Err: err}
	}
	return nil
}

// StringList decodes a JSONB array of strings; NULL or empty input yields an empty list.
func StringList(collection, id string, raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &DecodeError{Collection: collection, ID: id, Err: err}
	}
	return out, nil
}

// JSON decodes a JSONB column into dst.
func JSON(collection, id string, raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return &DecodeError{Collection: collection, ID: id, Err: err}
	}
	return nil
}

// EncodeList encodes a string list for a JSONB column, never as null.
func EncodeList(list []string) []byte {
	if list == nil {
		list = []string{}
	}
	b, _ := json.Marshal(list)
	return b
}
