package taskpool

import "encoding/json"

// Serializer encodes task payloads for storage and decodes them before
// dispatch. Implementations must round-trip any value they accept.
type Serializer interface {
	Encode(v any) (string, error)
	Decode(data string, v any) error
}

// JSONSerializer is the default payload codec.
type JSONSerializer struct{}

func (JSONSerializer) Encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (JSONSerializer) Decode(data string, v any) error {
	if data == "" {
		return nil
	}
	return json.Unmarshal([]byte(data), v)
}
