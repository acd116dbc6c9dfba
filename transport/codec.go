package transport

import "encoding/json"

// Encode marshals value to JSON. Every wire type in this package is a
// plain struct, so the codec is a thin wrapper rather than its own
// abstraction — swapping it for a binary codec later only touches this
// file.
func Encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

// Decode unmarshals data into dst.
func Decode(data []byte, dst any) error {
	return json.Unmarshal(data, dst)
}
