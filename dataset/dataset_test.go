package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"github.com/sono-ai/go-busi/images"
)

// stubDecoder returns fixed-shape tensors without touching OpenCV, but still
// fails on missing files so access-time errors can be exercised.
type stubDecoder struct{}

func (stubDecoder) Decode(path string, mode images.ReadMode) (*tensor.Dense, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	if mode == images.ReadGrayscale {
		return tensor.New(tensor.WithShape(1, 4, 4), tensor.WithBacking(make([]float32, 16))), nil
	}
	return tensor.New(tensor.WithShape(3, 4, 4), tensor.WithBacking(make([]float32, 48))), nil
}

// recordingDecoder captures the paths handed to it.
type recordingDecoder struct {
	stubDecoder
	paths []string
}

func (r *recordingDecoder) Decode(path string, mode images.ReadMode) (*tensor.Dense, error) {
	r.paths = append(r.paths, path)
	return r.stubDecoder.Decode(path, mode)
}

// stubDownloader counts invocations and lets tests control the side effect.
type stubDownloader struct {
	calls   int
	lastID  string
	lastDir string
	payload func(destDir string) error
}

func (s *stubDownloader) Download(identifier, destDir string) error {
	s.calls++
	s.lastID = identifier
	s.lastDir = destDir
	if s.payload != nil {
		return s.payload(destDir)
	}
	return nil
}

// writeSamples creates n image+mask pairs under root/class.
func writeSamples(t *testing.T, root, class string, n int) {
	t.Helper()
	dir := filepath.Join(root, class)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for i := 1; i <= n; i++ {
		img := fmt.Sprintf("%s (%d).png", class, i)
		mask := fmt.Sprintf("%s (%d)_mask.png", class, i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, img), []byte("png"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, mask), []byte("png"), 0o644))
	}
}

func TestNewSortsClassesAndCountsSamples(t *testing.T) {
	root := t.TempDir()
	writeSamples(t, root, "normal", 2)
	writeSamples(t, root, "benign", 2)
	writeSamples(t, root, "malignant", 2)

	ds, err := New(Args{DataDir: root, Decoder: stubDecoder{}})
	require.NoError(t, err)

	assert.Equal(t, 6, ds.Len())
	assert.Equal(t, []string{"benign", "malignant", "normal"}, ds.Classes())
	assert.Equal(t, map[string]int{"benign": 0, "malignant": 1, "normal": 2}, ds.ClassToIndex())
	assert.Equal(t, 3, ds.NumClasses())
}

func TestAtReturnsDecodedSample(t *testing.T) {
	root := t.TempDir()
	writeSamples(t, root, "benign", 2)
	writeSamples(t, root, "malignant", 2)

	ds, err := New(Args{DataDir: root, Decoder: stubDecoder{}})
	require.NoError(t, err)

	for i := 0; i < ds.Len(); i++ {
		sample, err := ds.At(i)
		require.NoError(t, err)
		assert.Equal(t, []int{3, 4, 4}, []int(sample.Image.Shape()))
		assert.Equal(t, []int{1, 4, 4}, []int(sample.Target.Masks.Shape()))
	}

	// Classes are visited in sorted order, so the first two samples are
	// benign (label 0) and the last two malignant (label 1).
	first, err := ds.At(0)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Target.Label)
	last, err := ds.At(ds.Len() - 1)
	require.NoError(t, err)
	assert.Equal(t, 1, last.Target.Label)
}

func TestAtIndexOutOfRange(t *testing.T) {
	root := t.TempDir()
	writeSamples(t, root, "benign", 1)

	ds, err := New(Args{DataDir: root, Decoder: stubDecoder{}})
	require.NoError(t, err)

	_, err = ds.At(-1)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	_, err = ds.At(ds.Len())
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestMissingRootWithoutSourceFails(t *testing.T) {
	root := filepath.Join(t.TempDir(), "does-not-exist")
	downloader := &stubDownloader{}

	_, err := New(Args{DataDir: root, Downloader: downloader, Decoder: stubDecoder{}})
	assert.True(t, errors.Is(err, ErrMissingSource))
	assert.Equal(t, 0, downloader.calls)
}

func TestMissingRootWithSourceDownloadsOnce(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "busi")
	downloader := &stubDownloader{
		payload: func(destDir string) error {
			writeSamples(t, filepath.Join(destDir, "busi"), "benign", 1)
			return nil
		},
	}

	ds, err := New(Args{
		DataDir:      root,
		RemoteSource: "user/busi-dataset",
		Downloader:   downloader,
		Decoder:      stubDecoder{},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, downloader.calls)
	assert.Equal(t, "user/busi-dataset", downloader.lastID)
	assert.Equal(t, parent, downloader.lastDir)
	assert.Equal(t, 1, ds.Len())
}

func TestDownloadThatMaterializesNothingFails(t *testing.T) {
	root := filepath.Join(t.TempDir(), "busi")
	downloader := &stubDownloader{}

	_, err := New(Args{
		DataDir:      root,
		RemoteSource: "user/busi-dataset",
		Downloader:   downloader,
		Decoder:      stubDecoder{},
	})
	assert.True(t, errors.Is(err, ErrDatasetNotFound))
	assert.Equal(t, 1, downloader.calls)
}

func TestDownloadErrorPropagates(t *testing.T) {
	root := filepath.Join(t.TempDir(), "busi")
	downloadErr := errors.New("network unreachable")
	downloader := &stubDownloader{
		payload: func(string) error { return downloadErr },
	}

	_, err := New(Args{
		DataDir:      root,
		RemoteSource: "user/busi-dataset",
		Downloader:   downloader,
		Decoder:      stubDecoder{},
	})
	assert.True(t, errors.Is(err, downloadErr))
}

func TestMaskPairing(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "normal")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "normal (3).png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "normal (3)_mask.png"), []byte("png"), 0o644))

	decoder := &recordingDecoder{}
	ds, err := New(Args{DataDir: root, Decoder: decoder})
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	_, err = ds.At(0)
	require.NoError(t, err)
	require.Len(t, decoder.paths, 2)
	assert.Equal(t, filepath.Join(dir, "normal (3).png"), decoder.paths[0])
	assert.Equal(t, filepath.Join(dir, "normal (3)_mask.png"), decoder.paths[1])
}

func TestNonMatchingFilesExcluded(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "benign")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range []string{
		"notes.txt",
		"benign.png",
		"benign (x).png",
		"benign (1).jpeg",
		"benign (2)_mask.png", // mask with no original
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "benign (7).png"), []byte("png"), 0o644))

	ds, err := New(Args{DataDir: root, Decoder: stubDecoder{}})
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
}

func TestDeterministicSampleOrder(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "benign")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, n := range []int{10, 2, 1} {
		name := fmt.Sprintf("benign (%d).png", n)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("png"), 0o644))
	}

	ds, err := New(Args{DataDir: root, Decoder: stubDecoder{}})
	require.NoError(t, err)

	want := []string{
		filepath.Join(dir, "benign (1).png"),
		filepath.Join(dir, "benign (2).png"),
		filepath.Join(dir, "benign (10).png"),
	}
	assert.Equal(t, want, ds.imagePaths)
}

func TestMissingMaskFailsAtAccessTime(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "normal")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "normal (1).png"), []byte("png"), 0o644))
	// No mask file: construction succeeds, access fails.

	ds, err := New(Args{DataDir: root, Decoder: stubDecoder{}})
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	_, err = ds.At(0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "normal (1)_mask.png")
}

func TestClassDistributionAndSummary(t *testing.T) {
	root := t.TempDir()
	writeSamples(t, root, "benign", 3)
	writeSamples(t, root, "malignant", 1)

	ds, err := New(Args{DataDir: root, Decoder: stubDecoder{}})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"benign": 3, "malignant": 1}, ds.ClassDistribution())
	summary := ds.Summary()
	assert.Contains(t, summary, "4 samples, 2 classes")
	assert.Contains(t, summary, "benign: 3 samples")
	assert.Contains(t, summary, "malignant: 1 samples")
}
