package contents

import (
	"strings"

	"github.com/google/uuid"
)

// v3 output keys and the mimetypes they are stored under in v4.
var v3MimeKeys = map[string]string{
	"text":       "text/plain",
	"html":       "text/html",
	"svg":        "image/svg+xml",
	"png":        "image/png",
	"jpeg":       "image/jpeg",
	"latex":      "text/latex",
	"json":       "application/json",
	"javascript": "application/javascript",
}

// upgradeV3 rewrites a version 3 notebook in place into the current
// format. Worksheets are flattened into one list of cells.
func upgradeV3(nb map[string]any) {
	meta, ok := nb["metadata"].(map[string]any)
	if !ok {
		meta = map[string]any{}
		nb["metadata"] = meta
	}
	meta["orig_nbformat"] = nb["nbformat"]
	if minor, ok := nb["nbformat_minor"]; ok {
		meta["orig_nbformat_minor"] = minor
	}
	delete(meta, "name")
	delete(meta, "signature")

	cells := []any{}
	worksheets, _ := nb["worksheets"].([]any)
	for _, w := range worksheets {
		ws, ok := w.(map[string]any)
		if !ok {
			continue
		}
		wsCells, _ := ws["cells"].([]any)
		for _, c := range wsCells {
			if cell, ok := c.(map[string]any); ok {
				cells = append(cells, upgradeCellV3(cell))
			}
		}
	}

	delete(nb, "worksheets")
	nb["cells"] = cells
	nb["nbformat"] = nbformatMajor
	nb["nbformat_minor"] = nbformatMinor
}

func upgradeCellV3(cell map[string]any) map[string]any {
	meta, ok := cell["metadata"].(map[string]any)
	if !ok {
		meta = map[string]any{}
		cell["metadata"] = meta
	}
	cell["id"] = strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	switch cell["cell_type"] {
	case "code":
		delete(cell, "language")
		if collapsed, ok := cell["collapsed"]; ok {
			meta["collapsed"] = collapsed
			delete(cell, "collapsed")
		}

		cell["source"] = popOr(cell, "input", "")
		cell["execution_count"] = popOr(cell, "prompt_number", nil)

		outputs, _ := cell["outputs"].([]any)
		upgraded := make([]any, 0, len(outputs))
		for _, o := range outputs {
			if output, ok := o.(map[string]any); ok {
				upgraded = append(upgraded, upgradeOutputV3(output))
			}
		}
		cell["outputs"] = upgraded
	case "heading":
		level, ok := intOf(popOr(cell, "level", nil))
		if !ok || level < 1 {
			level = 1
		}

		src := cell["source"]
		if lines, ok := src.([]any); ok {
			src = joinStrings(lines)
		}
		text, _ := src.(string)

		cell["cell_type"] = "markdown"
		cell["source"] = strings.Repeat("#", int(level)) + " " + strings.Join(strings.Split(strings.TrimRight(text, "\n"), "\n"), " ")
	case "html":
		cell["cell_type"] = "markdown"
	}

	return cell
}

func upgradeOutputV3(output map[string]any) map[string]any {
	switch output["output_type"] {
	case "pyout", "display_data":
		if _, ok := output["metadata"].(map[string]any); !ok {
			output["metadata"] = map[string]any{}
		}
		if output["output_type"] == "pyout" {
			output["output_type"] = "execute_result"
			output["execution_count"] = popOr(output, "prompt_number", nil)
		}

		data := map[string]any{}
		for key, v := range output {
			switch key {
			case "output_type", "execution_count", "metadata":
				continue
			}

			mime, ok := v3MimeKeys[key]
			if !ok {
				mime = key
			}
			if mime == "application/json" {
				v = decodeJSONValue(v)
			}
			data[mime] = v
			delete(output, key)
		}
		output["data"] = data
	case "pyerr":
		output["output_type"] = "error"
	case "stream":
		output["name"] = popOr(output, "stream", "stdout")
	}

	return output
}

// decodeJSONValue turns a v3 JSON output, stored as text, into the
// document it holds. Values that do not decode are kept as they are.
func decodeJSONValue(v any) any {
	if lines, ok := v.([]any); ok {
		v = joinStrings(lines)
	}

	s, ok := v.(string)
	if !ok {
		return v
	}

	decoded, err := decodeJSON([]byte(s))
	if err != nil {
		return s
	}

	return decoded
}

func popOr(m map[string]any, key string, fallback any) any {
	v, ok := m[key]
	if !ok {
		return fallback
	}
	delete(m, key)

	return v
}
