package sheets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestExtractID(t *testing.T) {
	id, err := ExtractID("https://docs.google.com/spreadsheets/d/1AbC-_def123/edit#gid=0")
	assert.NoError(t, err)
	assert.Equal(t, "1AbC-_def123", id)

	id, err = ExtractID("  bare-id-42 ")
	assert.NoError(t, err)
	assert.Equal(t, "bare-id-42", id)

	_, err = ExtractID("https://docs.google.com/document/d/whatever")
	assert.Error(t, err)
}

func TestRenderOption(t *testing.T) {
	assert.Equal(t, "UNFORMATTED_VALUE", renderOption(true))
	assert.Equal(t, "FORMATTED_VALUE", renderOption(false))
}

func TestColLetter(t *testing.T) {
	assert.Equal(t, "A", colLetter(1))
	assert.Equal(t, "Z", colLetter(26))
	assert.Equal(t, "AA", colLetter(27))
	assert.Equal(t, "AN", colLetter(40))
}

func TestTableColAndCell(t *testing.T) {
	tab := &Table{
		Header:    []string{"No", "QBO  Sync", "Remarks"},
		Rows:      [][]string{{"1", "READY"}},
		HeaderRow: 1,
	}
	assert.Equal(t, 1, tab.Col("qbo sync"))
	assert.Equal(t, -1, tab.Col("Month"))
	assert.Equal(t, "READY", tab.Cell(0, 1))
	assert.Equal(t, "", tab.Cell(0, 2), "ragged row reads as empty")
	assert.Equal(t, 3, tab.SheetRow(1))
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(&googleapi.Error{Code: 429}))
	assert.True(t, retryable(&googleapi.Error{Code: 503}))
	assert.False(t, retryable(&googleapi.Error{Code: 404}))
	assert.True(t, retryable(errors.New("Quota exceeded for requests")))
	assert.False(t, retryable(errors.New("permission denied")))
}
