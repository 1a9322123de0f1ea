package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/d70-t/preffs/manifest"
)

// SourceData is the content of the object referenced by FixtureRecords.
const SourceData = "0123456789"

// FixtureRecords returns the reference table used across tests:
//
//	a/b  -> uri[0,4) + uri[6,10)  = "01236789"
//	a/c  -> uri[0,10)             = "0123456789"
//	b    -> inline "test"
func FixtureRecords(uri string) []manifest.Record {
	return []manifest.Record{
		manifest.RemoteRecord("a/b", uri, 0, 4),
		manifest.RemoteRecord("a/b", uri, 6, 4),
		manifest.RemoteRecord("a/c", uri, 0, 10),
		manifest.InlineRecord("b", []byte("test")),
	}
}

// WriteManifest encodes records and returns the bytes, failing the test on error.
func WriteManifest(tb testing.TB, records []manifest.Record, format manifest.Format) []byte {
	tb.Helper()
	data, err := manifest.Encode(records, format)
	require.NoError(tb, err, "encode manifest")
	return data
}
