package contents

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	nbformatMajor = 4
	nbformatMinor = 5
)

var (
	errNotAnObject     = errors.New("notebook is not a JSON object")
	errUnsupportedNB   = errors.New("unsupported nbformat version")
	errMissingCells    = errors.New("'cells' is a required property")
	errMissingMetadata = errors.New("'metadata' is a required property")
	errTrailingData    = errors.New("unexpected data after top-level value")
)

// Notebook is a decoded notebook document. It is kept as a generic map so
// fields this service does not know about survive a round trip untouched.
type Notebook map[string]any

// NewNotebook returns an empty notebook of the current format.
func NewNotebook() Notebook {
	return Notebook{
		"cells":          []any{},
		"metadata":       map[string]any{},
		"nbformat":       nbformatMajor,
		"nbformat_minor": nbformatMinor,
	}
}

// ReadNotebook decodes a stored notebook. Multi-line strings stored as
// lists of lines are joined back together and version 3 documents are
// upgraded to the current format.
func ReadNotebook(data []byte) (Notebook, error) {
	raw, err := decodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("(nb-read) %w", err)
	}

	nb, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("(nb-read) %w", errNotAnObject)
	}

	major, _ := intOf(nb["nbformat"])
	switch major {
	case nbformatMajor:
	case 3:
		upgradeV3(nb)
	default:
		return nil, fmt.Errorf("(nb-read) %w: %v", errUnsupportedNB, nb["nbformat"])
	}

	rejoinLines(nb)

	return Notebook(nb), nil
}

// NotebookFromJSON decodes notebook content as sent by a client.
func NotebookFromJSON(data []byte) (Notebook, error) {
	raw, err := decodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("(nb-decode) %w", err)
	}

	nb, ok := raw.(map[string]any)
	if !ok || nb == nil {
		return nil, fmt.Errorf("(nb-decode) %w", errNotAnObject)
	}

	return Notebook(nb), nil
}

// decodeJSON keeps numbers as json.Number so integers beyond 2^53 are
// written back exactly as they were read.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err //nolint:wrapcheck
	}
	if dec.More() {
		return nil, errTrailingData
	}

	return v, nil
}

// intOf returns v as an integer when it holds one in any of the forms a
// decoded or locally built notebook may carry.
func intOf(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()

		return i, err == nil
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}

		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

// Bytes encodes nb for storage: sorted keys, one space indentation,
// multi-line strings split into lists of lines and transient fields
// removed.
func (nb Notebook) Bytes() ([]byte, error) {
	out := deepCopy(map[string]any(nb)).(map[string]any) //nolint:forcetypeassert

	stripTransient(out)
	splitLines(out)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", " ")

	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("(nb-encode) %w", err)
	}

	return buf.Bytes(), nil
}

// Validate checks the structural rules of the v4 notebook format.
func (nb Notebook) Validate() error {
	major, ok := intOf(nb["nbformat"])
	if !ok || major != nbformatMajor {
		return fmt.Errorf("%w: %v", errUnsupportedNB, nb["nbformat"])
	}

	if _, ok := nb["metadata"].(map[string]any); !ok {
		return errMissingMetadata
	}

	cells, ok := nb["cells"].([]any)
	if !ok {
		return errMissingCells
	}

	for i, c := range cells {
		if err := validateCell(c); err != nil {
			return fmt.Errorf("cell %d: %w", i, err)
		}
	}

	return nil
}

func validateCell(c any) error {
	cell, ok := c.(map[string]any)
	if !ok {
		return errors.New("cell is not an object")
	}

	if _, ok := cell["metadata"].(map[string]any); !ok {
		return errMissingMetadata
	}

	switch src := cell["source"].(type) {
	case string:
	case []any:
		for _, line := range src {
			if _, ok := line.(string); !ok {
				return errors.New("'source' contains a non-string line")
			}
		}
	default:
		return errors.New("'source' is a required property")
	}

	switch cell["cell_type"] {
	case "markdown", "raw":
		return nil
	case "code":
		if _, ok := cell["outputs"].([]any); !ok {
			return errors.New("'outputs' is a required property")
		}
		count, exists := cell["execution_count"]
		if !exists {
			return errors.New("'execution_count' is a required property")
		}
		if count == nil {
			return nil
		}
		if _, ok := intOf(count); !ok {
			return errors.New("'execution_count' must be null or an integer")
		}

		return nil
	default:
		return fmt.Errorf("unknown cell_type %v", cell["cell_type"])
	}
}

func cellsOf(nb map[string]any) []map[string]any {
	raw, _ := nb["cells"].([]any)

	cells := make([]map[string]any, 0, len(raw))
	for _, c := range raw {
		if cell, ok := c.(map[string]any); ok {
			cells = append(cells, cell)
		}
	}

	return cells
}

func outputsOf(cell map[string]any) []map[string]any {
	raw, _ := cell["outputs"].([]any)

	outputs := make([]map[string]any, 0, len(raw))
	for _, o := range raw {
		if output, ok := o.(map[string]any); ok {
			outputs = append(outputs, output)
		}
	}

	return outputs
}

// isJSONMime reports whether values of the mimetype are JSON documents
// rather than text, which must not be joined or split.
func isJSONMime(mime string) bool {
	return mime == "application/json" || strings.HasSuffix(mime, "+json")
}

func rejoinLines(nb map[string]any) {
	for _, cell := range cellsOf(nb) {
		if lines, ok := cell["source"].([]any); ok {
			cell["source"] = joinStrings(lines)
		}

		for _, output := range outputsOf(cell) {
			if lines, ok := output["text"].([]any); ok {
				output["text"] = joinStrings(lines)
			}
			if data, ok := output["data"].(map[string]any); ok {
				for mime, v := range data {
					if lines, ok := v.([]any); ok && !isJSONMime(mime) {
						data[mime] = joinStrings(lines)
					}
				}
			}
		}
	}
}

func splitLines(nb map[string]any) {
	for _, cell := range cellsOf(nb) {
		if s, ok := cell["source"].(string); ok {
			cell["source"] = splitString(s)
		}

		for _, output := range outputsOf(cell) {
			if s, ok := output["text"].(string); ok {
				output["text"] = splitString(s)
			}
			if data, ok := output["data"].(map[string]any); ok {
				for mime, v := range data {
					if s, ok := v.(string); ok && !isJSONMime(mime) {
						data[mime] = splitString(s)
					}
				}
			}
		}
	}
}

func stripTransient(nb map[string]any) {
	if meta, ok := nb["metadata"].(map[string]any); ok {
		delete(meta, "orig_nbformat")
		delete(meta, "orig_nbformat_minor")
		delete(meta, "signature")
	}

	for _, cell := range cellsOf(nb) {
		if meta, ok := cell["metadata"].(map[string]any); ok {
			delete(meta, "trusted")
		}
	}
}

func joinStrings(lines []any) string {
	var b strings.Builder
	for _, l := range lines {
		if s, ok := l.(string); ok {
			b.WriteString(s)
		}
	}

	return b.String()
}

// splitString splits s after every newline, keeping the newlines.
func splitString(s string) []any {
	lines := []any{}
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)

			break
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}

	return lines
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = deepCopy(val)
		}

		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = deepCopy(val)
		}

		return s
	default:
		return v
	}
}
