package contents

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadNotebook(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"Success_V4", `{"cells": [], "metadata": {}, "nbformat": 4, "nbformat_minor": 2}`, false},
		{"Success_V3", `{"worksheets": [], "metadata": {}, "nbformat": 3}`, false},
		{"Fail_V2", `{"worksheets": [], "metadata": {}, "nbformat": 2}`, true},
		{"Fail_FractionalVersion", `{"cells": [], "metadata": {}, "nbformat": 4.5}`, true},
		{"Fail_TrailingData", `{"cells": [], "metadata": {}, "nbformat": 4} {}`, true},
		{"Fail_NoVersion", `{"cells": []}`, true},
		{"Fail_Array", `[]`, true},
		{"Fail_Garbage", `{`, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ReadNotebook([]byte(tc.data))
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestReadNotebook_JoinsLines(t *testing.T) {
	t.Parallel()

	nb, err := ReadNotebook([]byte(`{
		"cells": [{
			"cell_type": "code", "execution_count": 1, "metadata": {},
			"source": ["a = 1\n", "a"],
			"outputs": [{
				"output_type": "execute_result", "execution_count": 1, "metadata": {},
				"data": {"text/plain": ["1\n", "2"], "application/json": ["x", "y"]}
			}, {
				"output_type": "stream", "name": "stdout", "text": ["out\n", "put"]
			}]
		}],
		"metadata": {}, "nbformat": 4, "nbformat_minor": 5
	}`))
	require.NoError(t, err)

	cell := cellsOf(nb)[0]
	assert.Equal(t, "a = 1\na", cell["source"])

	outputs := outputsOf(cell)
	data := outputs[0]["data"].(map[string]any)
	assert.Equal(t, "1\n2", data["text/plain"])
	assert.Equal(t, []any{"x", "y"}, data["application/json"])
	assert.Equal(t, "out\nput", outputs[1]["text"])

	require.NoError(t, nb.Validate())
}

func TestNotebook_Bytes(t *testing.T) {
	t.Parallel()

	nb := Notebook{
		"cells": []any{
			map[string]any{
				"cell_type": "markdown",
				"metadata":  map[string]any{"trusted": true, "tags": []any{}},
				"source":    "# Title\n<b>bold</b>\n",
			},
		},
		"metadata": map[string]any{
			"signature":     "sha256:abc",
			"orig_nbformat": 3,
			"kernelspec":    map[string]any{"name": "python3"},
		},
		"nbformat":       4,
		"nbformat_minor": 5,
	}

	data, err := nb.Bytes()
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "\n \"cells\": [")
	assert.Contains(t, out, `"# Title\n",`)
	assert.Contains(t, out, `"<b>bold</b>\n"`)
	assert.Contains(t, out, `"kernelspec"`)
	assert.NotContains(t, out, "signature")
	assert.NotContains(t, out, "orig_nbformat")
	assert.NotContains(t, out, "trusted")
	assert.True(t, out[len(out)-1] == '\n')

	// The notebook itself is left untouched.
	assert.Equal(t, "# Title\n<b>bold</b>\n", cellsOf(nb)[0]["source"])
	assert.Contains(t, nb["metadata"], "signature")

	back, err := ReadNotebook(data)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n<b>bold</b>\n", cellsOf(back)[0]["source"])
}

func TestNotebook_LargeIntegersRoundTrip(t *testing.T) {
	t.Parallel()

	const doc = `{"cells": [{"cell_type": "code", "execution_count": 9007199254740993, "metadata": {"run_id": 12345678901234567890}, "outputs": [], "source": "x"}], "metadata": {"seed": 9007199254740993}, "nbformat": 4, "nbformat_minor": 5}`

	testCases := []struct {
		name   string
		decode func([]byte) (Notebook, error)
	}{
		{"Success_FromClient", NotebookFromJSON},
		{"Success_FromStorage", ReadNotebook},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			nb, err := tc.decode([]byte(doc))
			require.NoError(t, err)
			require.NoError(t, nb.Validate())

			data, err := nb.Bytes()
			require.NoError(t, err)

			out := string(data)
			assert.Contains(t, out, `"seed": 9007199254740993`)
			assert.Contains(t, out, `"execution_count": 9007199254740993`)
			assert.Contains(t, out, `"run_id": 12345678901234567890`)
		})
	}
}

func TestReadNotebook_UpgradesV3(t *testing.T) {
	t.Parallel()

	nb, err := ReadNotebook([]byte(`{
		"metadata": {"name": "old", "signature": "sha256:abc"},
		"nbformat": 3, "nbformat_minor": 0,
		"worksheets": [{"cells": [
			{"cell_type": "heading", "level": 2, "metadata": {}, "source": ["Results\n"]},
			{"cell_type": "code", "language": "python", "collapsed": false, "metadata": {},
			 "input": ["a = 1\n", "a"], "prompt_number": 3,
			 "outputs": [
				{"output_type": "pyout", "prompt_number": 3, "metadata": {}, "text": ["1"], "json": "{\"k\": 1}"},
				{"output_type": "stream", "stream": "stderr", "text": ["warn\n"]},
				{"output_type": "pyerr", "ename": "E", "evalue": "v", "traceback": []}
			 ]}
		]}, {"cells": [
			{"cell_type": "markdown", "metadata": {}, "source": "second sheet"}
		]}]
	}`))
	require.NoError(t, err)
	require.NoError(t, nb.Validate())

	assert.NotContains(t, nb, "worksheets")
	major, _ := intOf(nb["nbformat"])
	assert.EqualValues(t, nbformatMajor, major)

	meta := nb["metadata"].(map[string]any)
	assert.NotContains(t, meta, "name")
	assert.NotContains(t, meta, "signature")

	cells := cellsOf(nb)
	require.Len(t, cells, 3)

	assert.Equal(t, "markdown", cells[0]["cell_type"])
	assert.Equal(t, "## Results", cells[0]["source"])

	code := cells[1]
	assert.Equal(t, "a = 1\na", code["source"])
	assert.Equal(t, json.Number("3"), code["execution_count"])
	assert.NotContains(t, code, "input")
	assert.NotContains(t, code, "language")
	assert.Equal(t, false, code["metadata"].(map[string]any)["collapsed"])
	assert.Len(t, code["id"], 8)

	outputs := outputsOf(code)
	require.Len(t, outputs, 3)
	assert.Equal(t, "execute_result", outputs[0]["output_type"])
	assert.Equal(t, json.Number("3"), outputs[0]["execution_count"])
	data := outputs[0]["data"].(map[string]any)
	assert.Equal(t, "1", data["text/plain"])
	assert.Equal(t, map[string]any{"k": json.Number("1")}, data["application/json"])
	assert.Equal(t, "stderr", outputs[1]["name"])
	assert.Equal(t, "error", outputs[2]["output_type"])

	assert.Equal(t, "second sheet", cells[2]["source"])

	stored, err := nb.Bytes()
	require.NoError(t, err)
	assert.NotContains(t, string(stored), "orig_nbformat")
}

func TestNotebook_Validate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		nb      Notebook
		wantErr bool
	}{
		{"Success_Empty", NewNotebook(), false},
		{"Fail_NoCells", Notebook{"metadata": map[string]any{}, "nbformat": 4}, true},
		{"Fail_NoMetadata", Notebook{"cells": []any{}, "nbformat": 4}, true},
		{"Fail_WrongVersion", Notebook{"cells": []any{}, "metadata": map[string]any{}, "nbformat": 3}, true},
		{"Fail_CellType", Notebook{
			"cells":    []any{map[string]any{"cell_type": "bogus", "metadata": map[string]any{}, "source": ""}},
			"metadata": map[string]any{}, "nbformat": 4,
		}, true},
		{"Fail_CodeWithoutOutputs", Notebook{
			"cells":    []any{map[string]any{"cell_type": "code", "metadata": map[string]any{}, "source": "", "execution_count": nil}},
			"metadata": map[string]any{}, "nbformat": 4,
		}, true},
		{"Success_Code", Notebook{
			"cells": []any{map[string]any{
				"cell_type": "code", "metadata": map[string]any{}, "source": []any{"x"},
				"execution_count": float64(3), "outputs": []any{},
			}},
			"metadata": map[string]any{}, "nbformat": float64(4),
		}, false},
		{"Success_DecodedNumbers", Notebook{
			"cells": []any{map[string]any{
				"cell_type": "code", "metadata": map[string]any{}, "source": "x",
				"execution_count": json.Number("12"), "outputs": []any{},
			}},
			"metadata": map[string]any{}, "nbformat": json.Number("4"),
		}, false},
		{"Fail_FractionalExecutionCount", Notebook{
			"cells": []any{map[string]any{
				"cell_type": "code", "metadata": map[string]any{}, "source": "x",
				"execution_count": json.Number("1.5"), "outputs": []any{},
			}},
			"metadata": map[string]any{}, "nbformat": json.Number("4"),
		}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.nb.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSplitString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []any{}, splitString(""))
	assert.Equal(t, []any{"a"}, splitString("a"))
	assert.Equal(t, []any{"a\n", "b\n"}, splitString("a\nb\n"))
	assert.Equal(t, []any{"a\n", "\n", "b"}, splitString("a\n\nb"))
}

func TestEncodeFile(t *testing.T) {
	t.Parallel()

	text, format, err := encodeFile("x", []byte("héllo"), "")
	require.NoError(t, err)
	assert.Equal(t, "héllo", text)
	assert.Equal(t, FormatText, format)

	text, format, err = encodeFile("x", []byte("hi"), FormatBase64)
	require.NoError(t, err)
	assert.Equal(t, "aGk=", text)
	assert.Equal(t, FormatBase64, format)

	_, _, err = encodeFile("x", []byte{0xff}, FormatText)
	require.Error(t, err)
	assert.Equal(t, 400, StatusOf(err))
}

func TestGuessMimetype(t *testing.T) {
	t.Parallel()

	mt := guessMimetype("index.html")
	require.NotNil(t, mt)
	assert.Equal(t, "text/html", *mt)

	assert.Nil(t, guessMimetype("Makefile"))
}
