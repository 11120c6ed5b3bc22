package query

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageToken_RoundTrip(t *testing.T) {
	orig := pageToken{SnapshotSeq: 41, AfterSeq: 17}

	s, err := encodeToken(orig)
	require.NoError(t, err)

	back, err := decodeToken(s)
	require.NoError(t, err)
	assert.Equal(t, orig, back)
}

func TestPageToken_StableAcrossEncodings(t *testing.T) {
	a, err := encodeToken(pageToken{SnapshotSeq: 9, AfterSeq: 5})
	require.NoError(t, err)
	b, err := encodeToken(pageToken{SnapshotSeq: 9, AfterSeq: 5})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPageToken_Golden(t *testing.T) {
	s, err := encodeToken(pageToken{SnapshotSeq: 9, AfterSeq: 5})
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "page_token", []byte(s))
}

func TestDecodeToken_Rejects(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"not base64", "!!not-base64!!"},
		{"not json", "bm90LWpzb24"},
		{"missing fields", "e30"},
		{"after beyond snapshot", mustToken(t, 3, 7)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeToken(tc.token)
			require.Error(t, err)
			assert.True(t, IsInvalidQuery(err))
		})
	}
}

func mustToken(t *testing.T, snapshot, after int64) string {
	t.Helper()
	s, err := encodeToken(pageToken{SnapshotSeq: snapshot, AfterSeq: after})
	require.NoError(t, err)
	return s
}
