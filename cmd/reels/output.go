package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type format string

const (
	formatYAML format = "yaml"
	formatJSON format = "json"
)

var output = formatYAML

func setOutputFormat(s string) error {
	switch format(s) {
	case formatYAML, formatJSON:
		output = format(s)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", s)
	}
}

// printOut writes data to stdout in the selected format.
func printOut(data any) error {
	return writeOut(os.Stdout, output, data)
}

func writeOut(w io.Writer, f format, data any) error {
	switch f {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", f)
	}
}
