package epub

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNavDocument(t *testing.T) {
	t.Parallel()
	navXML := `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<body>
  <nav epub:type="landmarks"><ol><li><a href="cover.xhtml">Cover</a></li></ol></nav>
  <nav epub:type="toc">
    <ol>
      <li><a href="chapter1.xhtml">Chapter 1</a></li>
      <li>
        <span>Part Two</span>
        <ol>
          <li><a href="chapter2.xhtml">Chapter 2</a></li>
          <li><a href="chapter3.xhtml">  </a></li>
        </ol>
      </li>
    </ol>
  </nav>
</body>
</html>`

	toc, err := parseNavDocument(strings.NewReader(navXML))
	require.NoError(t, err)
	require.Len(t, toc, 2)
	assert.Equal(t, "Chapter 1", toc[0].Title)
	assert.Equal(t, "chapter1.xhtml", toc[0].Href)
	assert.Equal(t, "Part Two", toc[1].Title)
	assert.Empty(t, toc[1].Href)
	require.Len(t, toc[1].Children, 1)
	assert.Equal(t, "Chapter 2", toc[1].Children[0].Title)
}

func TestParseNCX(t *testing.T) {
	t.Parallel()
	ncxXML := `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="np1">
      <navLabel><text>Opening</text></navLabel>
      <content src="one.xhtml"/>
      <navPoint id="np2">
        <navLabel><text>Scene</text></navLabel>
        <content src="one.xhtml#scene"/>
      </navPoint>
    </navPoint>
    <navPoint id="np3">
      <navLabel><text></text></navLabel>
      <content src="blank.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

	toc, err := parseNCX(strings.NewReader(ncxXML))
	require.NoError(t, err)
	require.Len(t, toc, 1)
	assert.Equal(t, "Opening", toc[0].Title)
	require.Len(t, toc[0].Children, 1)
	assert.Equal(t, "one.xhtml#scene", toc[0].Children[0].Href)
}
