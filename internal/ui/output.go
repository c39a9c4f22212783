package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/chroma/v2/quick"
	"gopkg.in/yaml.v2"
)

// Format selects how command results are printed.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates an --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want text, json or yaml)", s)
	}
}

// Encode writes v to w as JSON or YAML. When color is set the document is
// syntax highlighted.
func Encode(w io.Writer, format Format, v interface{}, color bool) error {
	var (
		data  []byte
		lexer string
		err   error
	)

	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
		lexer = "json"
	case FormatYAML:
		data, err = yaml.Marshal(v)
		lexer = "yaml"
	default:
		return fmt.Errorf("cannot encode %q output", format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if color {
		var highlighted bytes.Buffer
		if err := quick.Highlight(&highlighted, string(data), lexer, "terminal256", "monokai"); err == nil {
			_, err = w.Write(highlighted.Bytes())
			return err
		}
	}

	_, err = w.Write(data)
	return err
}

// PrintResult prints v to stdout in format, calling text for FormatText.
func PrintResult(format Format, v interface{}, text func()) error {
	if format == FormatText {
		text()
		return nil
	}
	return Encode(os.Stdout, format, v, IsTerminal(os.Stdout) && !IsCI())
}
