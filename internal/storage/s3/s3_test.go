package s3

import (
	"context"
	"io"
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "", endpointURL("", true))
	assert.Equal(t, "http://localhost:9000", endpointURL("localhost:9000", false))
	assert.Equal(t, "https://minio.internal", endpointURL("minio.internal", true))
	assert.Equal(t, "http://already:9000", endpointURL("http://already:9000", true))
}

func TestKeyPrefix(t *testing.T) {
	assert.Equal(t, "projects/a.json", (&Backend{}).key("/projects/a.json"))
	assert.Equal(t, "mirror/projects/a.json", (&Backend{prefix: "mirror"}).key("projects/a.json"))
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

// TestRoundTrip runs against a real S3-compatible endpoint, e.g. MinIO:
//
//	HUBMIRROR_TEST_S3_ENDPOINT=localhost:9000 go test ./internal/storage/s3
func TestRoundTrip(t *testing.T) {
	endpoint := os.Getenv("HUBMIRROR_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("HUBMIRROR_TEST_S3_ENDPOINT not set")
	}

	ctx := context.Background()
	b, err := New(ctx, Config{
		Endpoint:  endpoint,
		Bucket:    "hubmirror-test",
		AccessKey: envOr("HUBMIRROR_TEST_S3_ACCESS_KEY", "minioadmin"),
		SecretKey: envOr("HUBMIRROR_TEST_S3_SECRET_KEY", "minioadmin"),
		Region:    "us-east-1",
		Prefix:    t.Name(),
	})
	require.NoError(t, err)
	defer b.Close()

	key := "projects/a/p.json"
	require.NoError(t, b.PutObject(ctx, key, strings.NewReader(`{"ok":true}`), 11))

	rc, size, err := b.GetObject(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.EqualValues(t, 11, size)
	assert.JSONEq(t, `{"ok":true}`, string(data))

	require.NoError(t, b.CopyObject(ctx, key, key+".bak"))
	keys, err := b.List(ctx, "projects/")
	require.NoError(t, err)
	assert.Equal(t, []string{key, key + ".bak"}, keys)

	require.NoError(t, b.DeleteObject(ctx, key))
	require.NoError(t, b.DeleteObject(ctx, key+".bak"))
	ok, err := b.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = b.GetObject(ctx, key)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
