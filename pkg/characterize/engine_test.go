package characterize

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	kgzip "github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/characterize/pkg/bytereader"
	"github.com/ssargent/characterize/pkg/config"
	"github.com/ssargent/characterize/pkg/digest"
	"github.com/ssargent/characterize/pkg/gzip"
	"github.com/ssargent/characterize/pkg/source"
)

func gz(t *testing.T, name string, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := kgzip.NewWriter(&buf)
	w.Name = name
	_, err := w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.gz")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func testOptions(t *testing.T) Options {
	return Options{
		BufferKind:    bytereader.Heap,
		FailFastLimit: 10,
		TempDir:       filepath.Join(t.TempDir(), "spool"),
	}
}

func TestRun_GzipTree(t *testing.T) {
	stream := append(gz(t, "one.txt", []byte("first")), gz(t, "two.txt", []byte("second"))...)
	path := writeFile(t, stream)

	e := New(testOptions(t))
	res, err := e.Run(context.Background(), path)
	require.NoError(t, err)
	defer res.Close()

	// gzip coverage is selective, so only the module verdict is definite
	assert.Equal(t, source.Undetermined, res.Root.Validity())
	children := res.Root.Children()
	require.Len(t, children, 2)
	assert.Equal(t, "one.txt", children[0].Name())
	assert.Equal(t, int64(5), children[0].Length())
	assert.Equal(t, int64(6), children[1].Length())

	rep := res.Report()
	assert.Equal(t, "undetermined", rep.Validity)
	require.Len(t, rep.Root.Modules, 1)
	assert.Equal(t, gzip.FormatID, rep.Root.Modules[0].ID)
	assert.Equal(t, "true", rep.Root.Modules[0].Validity)
	assert.Empty(t, rep.Messages)
}

func TestRun_CloseRemovesSpooledMembers(t *testing.T) {
	path := writeFile(t, gz(t, "a", []byte("payload")))

	e := New(testOptions(t))
	res, err := e.Run(context.Background(), path)
	require.NoError(t, err)

	children := res.Root.Children()
	require.Len(t, children, 1)
	spooled := children[0].Path()
	assert.FileExists(t, spooled)

	require.NoError(t, res.Close())
	assert.NoFileExists(t, spooled)
	assert.FileExists(t, path)
}

func TestRun_Digests(t *testing.T) {
	path := writeFile(t, gz(t, "a", []byte("payload")))

	opts := testOptions(t)
	opts.Digests = []digest.Algorithm{digest.BLAKE3, digest.XXH64}
	res, err := New(opts).Run(context.Background(), path)
	require.NoError(t, err)
	defer res.Close()

	var names []string
	for _, p := range res.Root.Children()[0].Properties() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"BLAKE3", "XXH64"}, names)
}

func TestRun_UnrecognizedFile(t *testing.T) {
	path := writeFile(t, []byte("plain text, not compressed"))

	res, err := New(testOptions(t)).Run(context.Background(), path)
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, source.Undetermined, res.Root.Validity())
	assert.Empty(t, res.Root.Children())
	assert.Empty(t, res.Root.FormatIdentifications())
}

func TestRun_CorruptFileIsAReportNotAnError(t *testing.T) {
	data := gz(t, "a", []byte("payload"))
	data[len(data)-1] ^= 0xFF

	res, err := New(testOptions(t)).Run(context.Background(), writeFile(t, data))
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, source.False, res.Root.Validity())
	rep := res.Report()
	require.NotEmpty(t, rep.Messages)
	assert.Equal(t, gzip.CodeISizeMismatch, rep.Messages[0].Code)
}

func TestRun_MissingFile(t *testing.T) {
	_, err := New(testOptions(t)).Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestRunReader(t *testing.T) {
	opts := testOptions(t)
	res, err := New(opts).RunReader(context.Background(), "upload.gz", bytes.NewReader(gz(t, "", []byte("xyz"))))
	require.NoError(t, err)

	assert.Equal(t, "upload.gz", res.Root.Name())
	children := res.Root.Children()
	require.Len(t, children, 1)
	assert.Equal(t, "upload.gz#1", children[0].Name())

	upload := res.Root.Path()
	assert.FileExists(t, upload)
	require.NoError(t, res.Close())
	assert.NoFileExists(t, upload)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Reader.BufferKind = "mapped"
	cfg.Characterize.Workers = 4
	cfg.Characterize.Digests = []string{"xxh64"}

	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, bytereader.Mapped, opts.BufferKind)
	assert.Equal(t, 4, opts.Workers)
	assert.Equal(t, []digest.Algorithm{digest.XXH64}, opts.Digests)

	cfg.Reader.BufferKind = "bogus"
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}

func TestFormats(t *testing.T) {
	assert.Equal(t, []string{gzip.FormatID}, New(Options{}).Formats())
}
