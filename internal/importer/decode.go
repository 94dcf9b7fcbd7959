package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/ReformedChapter/core/errors"
	"github.com/FocuswithJustin/ReformedChapter/core/resource"
	"github.com/FocuswithJustin/ReformedChapter/internal/validation"
)

// envelope is the object form of an import file: {"resources": [...]}.
type envelope struct {
	Resources []resource.Resource `json:"resources" yaml:"resources"`
}

// Decode reads an import payload named filename. JSON and YAML are
// accepted, either bare or xz-compressed, and either as a list of
// resources or as an object with a "resources" list. Payloads larger than
// validation.MaxImportSize after decompression are rejected.
func Decode(r io.Reader, filename string) ([]resource.Resource, validation.Format, error) {
	format, body, err := validation.DetectFormat(r, filename)
	if err != nil {
		return nil, format, err
	}

	if format.XZ {
		xr, err := xz.NewReader(body)
		if err != nil {
			return nil, format, errors.NewParse("xz", filename, err)
		}
		body = xr
	}

	data, err := io.ReadAll(io.LimitReader(body, validation.MaxImportSize+1))
	if err != nil {
		if format.XZ {
			return nil, format, errors.NewParse("xz", filename, err)
		}
		return nil, format, fmt.Errorf("read %s: %w", filename, err)
	}
	if len(data) > validation.MaxImportSize {
		return nil, format, &errors.ValidationError{Field: "file", Value: filename, Message: "import exceeds the size limit"}
	}

	if format.Encoding == validation.EncodingUnknown {
		format.Encoding = validation.SniffEncoding(data)
	}

	var rs []resource.Resource
	switch format.Encoding {
	case validation.EncodingJSON:
		rs, err = decodeJSON(data)
		if err != nil {
			return nil, format, errors.NewParse("JSON", filename, err)
		}
	case validation.EncodingYAML:
		rs, err = decodeYAML(data)
		if err != nil {
			return nil, format, errors.NewParse("YAML", filename, err)
		}
	default:
		return nil, format, &errors.ValidationError{Field: "file", Value: filename, Message: "no resources found"}
	}
	return rs, format, nil
}

func decodeJSON(data []byte) ([]resource.Resource, error) {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, err
		}
		return env.Resources, nil
	}
	var rs []resource.Resource
	if err := json.Unmarshal(trimmed, &rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// decodeYAML accepts a single document holding either a sequence of
// resources or a mapping with a "resources" key.
func decodeYAML(data []byte) ([]resource.Resource, error) {
	var node yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&node); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.MappingNode:
		var env envelope
		if err := root.Decode(&env); err != nil {
			return nil, err
		}
		return env.Resources, nil
	case yaml.SequenceNode:
		var rs []resource.Resource
		if err := root.Decode(&rs); err != nil {
			return nil, err
		}
		return rs, nil
	}
	return nil, fmt.Errorf("line %d: expected a list of resources", root.Line)
}
