package normalisers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html/atom"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>MOSDAC</title><style>body { color: red; }</style></head>
<body>
  <header><a href="/">Home</a> Site header</header>
  <nav><a href="/insat-3d">INSAT-3D</a><a href="missions/oceansat-3/">Oceansat<span>-3</span></a></nav>
  <main>
    <h1>Satellite   data</h1>
    <p>INSAT-3D&nbsp;carries an imager
       and a sounder.</p>
    <!-- hidden comment -->
    <script>var x = "not text";</script>
    <a href="https://other.example.com/doc.pdf">Brochure</a>
    <a name="anchor-without-href">ignored</a>
  </main>
  <aside>related links</aside>
  <footer>footer text</footer>
</body>
</html>`

func TestHTMLNormaliser_Text(t *testing.T) {
	page, err := NewHTMLNormaliser().Normalise([]byte(samplePage), "https://mosdac.gov.in/")
	require.NoError(t, err)

	assert.Equal(t, "MOSDAC Satellite data INSAT-3D carries an imager and a sounder. Brochure ignored", page.Text)
	assert.NotContains(t, page.Text, "not text")
	assert.NotContains(t, page.Text, "footer")
	assert.NotContains(t, page.Text, "related links")
	assert.NotContains(t, page.Text, "hidden comment")
}

func TestHTMLNormaliser_Anchors(t *testing.T) {
	page, err := NewHTMLNormaliser().Normalise([]byte(samplePage), "https://mosdac.gov.in/")
	require.NoError(t, err)

	require.Len(t, page.Anchors, 4)
	assert.Equal(t, "Home", page.Anchors[0].Text)
	assert.Equal(t, "https://mosdac.gov.in/", page.Anchors[0].Href)
	assert.Equal(t, "INSAT-3D", page.Anchors[1].Text)
	assert.Equal(t, "https://mosdac.gov.in/insat-3d", page.Anchors[1].Href)
	assert.Equal(t, "Oceansat-3", page.Anchors[2].Text)
	assert.Equal(t, "https://mosdac.gov.in/missions/oceansat-3/", page.Anchors[2].Href)
	assert.Equal(t, "https://other.example.com/doc.pdf", page.Anchors[3].Href)
}

func TestHTMLNormaliser_CustomStripping(t *testing.T) {
	n := NewHTMLNormaliserStripping(atom.Script)
	page, err := n.Normalise([]byte(`<p>keep</p><footer>also kept</footer><script>drop</script>`), "https://x/")
	require.NoError(t, err)

	assert.Equal(t, "keep also kept", page.Text)
}

func TestHTMLNormaliser_BadBaseURL(t *testing.T) {
	_, err := NewHTMLNormaliser().Normalise([]byte("<p>x</p>"), "://bad")
	assert.Error(t, err)
}
