package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractOpenGraphWinsOverPlain(t *testing.T) {
	html := `<html><head>
		<title>Plain Title</title>
		<meta property="og:title" content="OG Title">
		<meta name="description" content="plain desc">
		<link rel="canonical" href="https://example.test/canonical">
	</head><body></body></html>`

	m, err := Extract(html)
	require.NoError(t, err)
	assert.Equal(t, "OG Title", m.Title)
	assert.Equal(t, "plain desc", m.Description)
	assert.Equal(t, "https://example.test/canonical", m.CanonicalURL)
}

func TestExtractJSONLDHeadlineAndGraph(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">
		{"@graph": [{"@type":"Article","headline":"Graph Headline","datePublished":"2024-01-01","author":{"name":"Jane"}}]}
		</script>
	</head><body></body></html>`

	m, err := Extract(html)
	require.NoError(t, err)
	assert.Equal(t, "Graph Headline", m.Title)
	assert.Equal(t, "2024-01-01", m.PublishedDate)
	assert.Equal(t, "Jane", m.Author)
}

func TestExtractImagesDeduplicatedInsertionOrdered(t *testing.T) {
	html := `<html><head>
		<meta property="og:image" content="https://example.test/a.png">
		<meta property="og:image" content="https://example.test/b.png">
		<meta property="og:image" content="https://example.test/a.png">
	</head><body></body></html>`

	m, err := Extract(html)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.test/a.png", "https://example.test/b.png"}, m.Images)
	assert.Equal(t, "https://example.test/a.png", m.PrimaryImage)
}

func TestPrimaryImagePrefersOpenGraphOverJSONLD(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">
		{"@type":"Article","headline":"Headline","image":"https://example.test/jsonld.png"}
		</script>
		<meta property="og:image" content="https://example.test/og.png">
	</head><body></body></html>`

	m, err := Extract(html)
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/og.png", m.PrimaryImage)
}
