package shareurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBuildPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "/build/AB_AC_AD-AAAAAAAAAAAA", want: "AB_AC_AD-AAAAAAAAAAAA"},
		{in: "https://stellasora.tools/build/AB_AC.v2/", want: "AB_AC.v2"},
		{in: "/build/ABC?ref=discord", want: "ABC"},
		{in: "/build/", wantErr: true},
		{in: "/build/AB+C", wantErr: true},
		{in: "/b/abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBuildPath(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShortLinkRoundTrip(t *testing.T) {
	queries := []string{
		"c1=101&c2=202&c3=303&t=A",
		"?c1=%E3%83%81%E3%83%88%E3%82%BB&t=Bq&n=speed+run",
		"n=ちとせ&t=A",
		"",
	}
	for _, q := range queries {
		link := ShortLink(q)
		assert.Regexp(t, `^/b/[A-Za-z0-9_-]*$`, link)

		expanded, err := ExpandShortLink(link)
		require.NoError(t, err)
		assert.Equal(t, QueryPath(q), expanded)
	}
}

func TestDecompressQuery_Invalid(t *testing.T) {
	_, err := DecompressQuery("abc=")
	assert.Error(t, err)
	_, err = DecompressQuery("A")
	assert.Error(t, err)
	_, err = ExpandShortLink("/build/abc")
	assert.Error(t, err)
}

func TestExtractTokens(t *testing.T) {
	text := `try https://stellasora.tools/build/AB_AC_AD-AAAAAAAAAAAA and
/build/ABC5E1_AC_AD-AKAUAeAAAAAA. also /build/AB_AC_AD-AAAAAAAAAAAA again`

	assert.Equal(t, []string{
		"AB_AC_AD-AAAAAAAAAAAA",
		"ABC5E1_AC_AD-AKAUAeAAAAAA",
	}, ExtractTokens(text))
	assert.Nil(t, ExtractTokens("nothing here"))
}
