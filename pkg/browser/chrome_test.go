package browser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJSStringQuotesSelectors(t *testing.T) {
	assert.Equal(t, `"div.pagination-label-wrapper[id$='_Next']"`, jsString("div.pagination-label-wrapper[id$='_Next']"))
	assert.Equal(t, `"a[title=\"x\"]"`, jsString(`a[title="x"]`))
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.True(t, opts.Headless)
	assert.Equal(t, 30*time.Second, opts.WaitTimeout)
	assert.Equal(t, time.Second, opts.Settle)
}
