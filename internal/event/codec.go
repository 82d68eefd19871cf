package event

import (
	"fmt"
	"strconv"
)

// Wire payload field names. Every message carries name, source and args;
// FieldRetryCount is added in-band when a reclaimed message is republished.
const (
	FieldName       = "name"
	FieldSource     = "source"
	FieldArgs       = "args"
	FieldRetryCount = "_retry_count"
)

// EncodeMessage builds the stream payload for an event tagged with its
// originating source identifier.
func EncodeMessage(ev Event, source string) (map[string]interface{}, error) {
	args, err := ev.EncodeArgs()
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", ev.Name(), err)
	}
	return map[string]interface{}{
		FieldName:   ev.Name(),
		FieldSource: source,
		FieldArgs:   args,
	}, nil
}

// DecodeMessage extracts the name, source and args tuple from a stream
// payload. Values come back from the stream engine as strings.
func DecodeMessage(values map[string]interface{}) (name, source string, args []byte, err error) {
	name, err = stringField(values, FieldName)
	if err != nil {
		return "", "", nil, err
	}
	source, err = stringField(values, FieldSource)
	if err != nil {
		return "", "", nil, err
	}
	rawArgs, err := stringField(values, FieldArgs)
	if err != nil {
		return "", "", nil, err
	}
	return name, source, []byte(rawArgs), nil
}

// RetryCount reads the in-band retry counter of a reclaimed message.
// A missing or malformed field counts as zero deliveries retried.
func RetryCount(values map[string]interface{}) int {
	raw, ok := values[FieldRetryCount]
	if !ok {
		return 0
	}
	s, ok := raw.(string)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func stringField(values map[string]interface{}, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("payload missing %q field", key)
	}
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("payload field %q has unexpected type %T", key, raw)
	}
}
