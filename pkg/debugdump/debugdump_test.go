package debugdump

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "github.com/arcadiusmc/delphi/internal/errors"
	"github.com/arcadiusmc/delphi/pkg/dom"
)

var taken = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

func shopDump() Dump {
	return Dump{
		Surface: "shop",
		State:   "committed",
		Taken:   taken,
		Tree:    dom.El(dom.KindMenu, dom.Key("m"), dom.El(dom.KindButton, dom.Key("buy"), "Buy")),
	}
}

func TestDumpNameAndEncode(t *testing.T) {
	d := shopDump()
	assert.Equal(t, "shop-20260102T150405.000Z.xml", d.Name())

	d.Surface = "lobby/main hall"
	assert.Equal(t, "lobby_main_hall-20260102T150405.000Z.xml", d.Name())

	data, err := shopDump().Encode()
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "<!-- surface shop state committed taken 2026-01-02T15:04:05Z nodes 3 -->\n")
	assert.Contains(t, out, `<button key="buy">Buy</button>`)
}

func TestFileSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")
	sink, err := NewFileSink(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, sink.Dir())

	loc, err := Save(context.Background(), sink, shopDump())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "shop-20260102T150405.000Z.xml"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<menu key="m">`)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileSinkRejectsBadNames(t *testing.T) {
	sink, err := NewFileSink(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", ".", "..", "../escape.xml", `a\b.xml`} {
		_, err := sink.Write(context.Background(), name, []byte("x"))
		assert.ErrorIs(t, err, ErrBadName, name)
	}
}

func TestFileSinkCanceled(t *testing.T) {
	sink, err := NewFileSink(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Save(ctx, sink, shopDump())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "D041", derrors.Code(err))
}

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Sink(t *testing.T) {
	client := &fakeS3{}
	sink := NewS3Sink(client, "ui-dumps", "lobby/")

	loc, err := Save(context.Background(), sink, shopDump())
	require.NoError(t, err)
	assert.Equal(t, "s3://ui-dumps/lobby/shop-20260102T150405.000Z.xml", loc)

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "ui-dumps", aws.ToString(in.Bucket))
	assert.Equal(t, "lobby/shop-20260102T150405.000Z.xml", aws.ToString(in.Key))
	assert.Equal(t, ContentType, aws.ToString(in.ContentType))
	assert.Equal(t, int64(len(client.bodies[0])), aws.ToInt64(in.ContentLength))
	assert.Contains(t, in.Metadata, "dump-time")
	assert.Contains(t, string(client.bodies[0]), `<menu key="m">`)
}

func TestS3SinkError(t *testing.T) {
	cause := errors.New("access denied")
	sink := NewS3Sink(&fakeS3{err: cause}, "ui-dumps", "")

	_, err := Save(context.Background(), sink, shopDump())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "D041", derrors.Code(err))
}

func TestNewS3Client(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	_, err := NewS3Client("eu-west-1")
	assert.ErrorIs(t, err, ErrNoCredentials)

	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_ENDPOINT_URL", "http://127.0.0.1:9000")
	client, err := NewS3Client("eu-west-1")
	require.NoError(t, err)

	opts := client.Options()
	assert.Equal(t, "eu-west-1", opts.Region)
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(opts.BaseEndpoint))

	creds, err := opts.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIDEXAMPLE", creds.AccessKeyID)
}
