package feed

import (
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageValidationCases(t *testing.T) {
	var id = uuid.New()

	var cases = []struct {
		img    LocalFeedImage
		expect string
	}{
		{LocalFeedImage{ID: id, URL: mustParse("https://a-url.com/1")}, ""},
		{LocalFeedImage{URL: mustParse("https://a-url.com/1")}, "expected ID"},
		{LocalFeedImage{ID: id}, "expected URL"},
		{LocalFeedImage{ID: id, URL: mustParse("a/relative/path")}, `URL is not absolute \(a/relative/path\)`},
	}
	for _, tc := range cases {
		if tc.expect == "" {
			assert.NoError(t, tc.img.Validate())
		} else {
			assert.Regexp(t, tc.expect, tc.img.Validate())
		}
	}
}

func TestFeedValidationCases(t *testing.T) {
	var a, b = uuid.New(), uuid.New()

	var f = Feed{
		{ID: a, URL: mustParse("https://a-url.com/a")},
		{ID: b, URL: mustParse("https://a-url.com/b")},
	}
	assert.NoError(t, f.Validate())
	assert.NoError(t, Feed{}.Validate())
	assert.NoError(t, Feed(nil).Validate())

	f[1].URL = nil
	assert.EqualError(t, f.Validate(), "Feed[1]: expected URL")

	f[1] = LocalFeedImage{ID: a, URL: mustParse("https://a-url.com/c")}
	assert.Regexp(t, `duplicate image ID \(index 1; ID .* also at index 0\)`, f.Validate())

	var ve *ValidationError
	require.ErrorAs(t, f.Validate(), &ve)
}

func TestRecordValidation(t *testing.T) {
	var r = Record{Feed: Feed{}}
	assert.EqualError(t, r.Validate(), "expected Timestamp")

	r.Timestamp = time.Unix(1000, 0).UTC()
	assert.NoError(t, r.Validate())
}

func TestCloneIsDeep(t *testing.T) {
	var desc = "a description"
	var f = Feed{{ID: uuid.New(), Description: &desc, URL: mustParse("https://a-url.com/a")}}

	var c = f.Clone()
	assert.Equal(t, f, c)

	*c[0].Description = "changed"
	c[0].URL.Path = "/changed"

	assert.Equal(t, "a description", *f[0].Description)
	assert.Equal(t, "/a", f[0].URL.Path)
	assert.Nil(t, c[0].Location)

	assert.Equal(t, Feed{}, Feed(nil).Clone())
}

func mustParse(s string) *url.URL {
	var u, err = url.Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}
