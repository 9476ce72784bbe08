package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowList_Filter(t *testing.T) {
	filter, err := NewAllowList("www.collegedekho.com", " ")
	require.NoError(t, err)

	assert.True(t, filter.Filter("https://www.collegedekho.com/colleges/iitb"))
	assert.True(t, filter.Filter("https://collegedekho.com/"))
	assert.True(t, filter.Filter("http://m.collegedekho.com/x"))
	assert.False(t, filter.Filter("https://notcollegedekho.com/"))
	assert.False(t, filter.Filter("mailto:info@collegedekho.com"))
	assert.False(t, filter.Filter("https://careers360.com/"))
}

func TestNewAllowList_Empty(t *testing.T) {
	_, err := NewAllowList("", "  ")
	assert.Error(t, err)
}

func TestDomainOf(t *testing.T) {
	domain, err := DomainOf("https://www.CollegeDekho.com/engineering/colleges-in-india/")
	require.NoError(t, err)
	assert.Equal(t, "collegedekho.com", domain)

	_, err = DomainOf("/relative/only")
	assert.Error(t, err)
}
