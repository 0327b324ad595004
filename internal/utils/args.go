package utils

import (
	"fmt"
	"strings"
)

// Header is a parsed "Name: Value" argument.
type Header struct {
	Name  string
	Value string
}

// ParseHeader parses a header given on the command line as "Name: Value".
func ParseHeader(arg string) (Header, error) {
	parts := strings.SplitN(arg, ":", 2)
	if len(parts) != 2 {
		return Header{}, fmt.Errorf("header must be in 'Name: Value' format: %s", arg)
	}
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return Header{}, fmt.Errorf("header name is empty: %s", arg)
	}
	return Header{Name: name, Value: strings.TrimSpace(parts[1])}, nil
}

// ParseHeaders parses every argument, keeping their order.
func ParseHeaders(args []string) ([]Header, error) {
	headers := make([]Header, 0, len(args))
	for _, arg := range args {
		h, err := ParseHeader(arg)
		if err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}
	return headers, nil
}
