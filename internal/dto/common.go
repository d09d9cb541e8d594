package dto

import "encoding/json"

// sentFields запоминает ключи, пришедшие в теле PUT-запроса, чтобы отличить
// отсутствующее поле от явного null.
type sentFields map[string]struct{}

func collectSentFields(data []byte) (sentFields, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(sentFields, len(raw))
	for key := range raw {
		out[key] = struct{}{}
	}
	return out, nil
}

func (s sentFields) has(key string) bool {
	_, ok := s[key]
	return ok
}
