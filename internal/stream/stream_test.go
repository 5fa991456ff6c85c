package stream

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecForPath(t *testing.T) {
	assert.Equal(t, Gzip, CodecForPath("a.mvf.gz"))
	assert.Equal(t, Zstd, CodecForPath("a.mvf.zst"))
	assert.Equal(t, Plain, CodecForPath("a.mvf"))
}

func TestRoundTripCodecs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"plain.txt", "data.txt.gz", "data.txt.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			w, err := Create(path)
			require.NoError(t, err)
			_, err = w.WriteString("line one\nline two\nlast")
			require.NoError(t, err)
			require.NoError(t, w.Close())
			require.NoError(t, w.Close())

			r, err := Open(path)
			require.NoError(t, err)
			defer r.Close()
			assert.Equal(t, CodecForPath(path), r.Codec())

			var lines []string
			for {
				line, err := ReadLine(r.Reader)
				if errors.Is(err, io.EOF) {
					break
				}
				require.NoError(t, err)
				lines = append(lines, line)
			}
			assert.Equal(t, []string{"line one", "line two", "last"}, lines)
		})
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestReadLineCRLF(t *testing.T) {
	r, err := NewReader(strings.NewReader("a\r\nb\n"))
	require.NoError(t, err)
	l, err := ReadLine(r.Reader)
	require.NoError(t, err)
	assert.Equal(t, "a", l)
	l, err = ReadLine(r.Reader)
	require.NoError(t, err)
	assert.Equal(t, "b", l)
	_, err = ReadLine(r.Reader)
	assert.ErrorIs(t, err, io.EOF)
}

func TestEmptyStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	_, err = ReadLine(r.Reader)
	assert.ErrorIs(t, err, io.EOF)
}
