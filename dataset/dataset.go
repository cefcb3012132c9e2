// Package dataset - indexed access to breast-ultrasound image/mask pairs laid
// out as one directory per class, with samples named "<stem> (<N>).png" and
// masks "<stem> (<N>)_mask.png".
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorgonia.org/tensor"

	"github.com/sono-ai/go-busi/fetch"
	"github.com/sono-ai/go-busi/images"
)

// Decoder decodes an image file into a CHW float32 tensor. The dataset holds
// one and calls it lazily on every At access.
type Decoder interface {
	Decode(path string, mode images.ReadMode) (*tensor.Dense, error)
}

// Args configures New.
type Args struct {
	// DataDir is the dataset root: one subdirectory per class.
	DataDir string
	// RemoteSource optionally names a remote dataset (URL or Kaggle slug) to
	// fetch into the parent of DataDir when DataDir does not exist.
	RemoteSource string
	// Downloader fetches RemoteSource. Defaults to fetch.NewHTTPDownloader().
	Downloader fetch.Downloader
	// Decoder decodes sample files. Defaults to images.FileDecoder{}.
	Decoder Decoder
}

// Target is the supervision attached to a sample.
type Target struct {
	// Masks is the segmentation mask, shaped [1, H, W].
	Masks *tensor.Dense
	// Label is the zero-based class index of the sample.
	Label int
}

// Sample is one (image, {mask, label}) unit returned by At.
type Sample struct {
	// Image is the original image, shaped [3, H, W].
	Image *tensor.Dense
	Target Target
}

// Dataset is a random-access index over the on-disk layout. All enumeration
// happens at construction; image decoding is deferred to At. Instances are
// immutable after New and safe for concurrent reads if the decoder is.
type Dataset struct {
	dataDir      string
	classNames   []string
	labelMapping map[string]int
	imagePaths   []string
	maskPaths    []string
	labels       []string
	classWeights *tensor.Dense
	decoder      Decoder
}

// New builds the dataset index rooted at args.DataDir.
//
// If the data directory is missing and a remote source is configured, the
// download collaborator is invoked exactly once with the parent of the data
// directory before enumeration. Construction either fully succeeds or fails;
// no partial index is ever returned.
//
// Arguments:
// - args: See Args. Only DataDir is required.
//
// Returns:
// - *Dataset: The fully built index.
// - error: ErrMissingSource, ErrDatasetNotFound, a propagated download error,
//   or a filesystem error from class enumeration.
func New(args Args) (*Dataset, error) {
	if args.DataDir == "" {
		return nil, errors.New("DataDir is required")
	}
	decoder := args.Decoder
	if decoder == nil {
		decoder = images.FileDecoder{}
	}

	if _, err := os.Stat(args.DataDir); os.IsNotExist(err) {
		log.WithFields(log.Fields{"dir": args.DataDir}).Info("data directory not found")
		if args.RemoteSource == "" {
			return nil, errors.Wrap(ErrMissingSource, args.DataDir)
		}

		downloader := args.Downloader
		if downloader == nil {
			downloader = fetch.NewHTTPDownloader()
		}
		if err := downloader.Download(args.RemoteSource, filepath.Dir(args.DataDir)); err != nil {
			return nil, errors.Wrapf(err, "downloading %q", args.RemoteSource)
		}
		if _, err := os.Stat(args.DataDir); os.IsNotExist(err) {
			return nil, errors.Wrap(ErrDatasetNotFound, args.DataDir)
		}
	}

	classNames, err := listClasses(args.DataDir)
	if err != nil {
		return nil, err
	}
	labelMapping := make(map[string]int, len(classNames))
	for i, name := range classNames {
		labelMapping[name] = i
	}

	d := &Dataset{
		dataDir:      args.DataDir,
		classNames:   classNames,
		labelMapping: labelMapping,
		decoder:      decoder,
	}
	if err := d.scan(); err != nil {
		return nil, err
	}

	d.classWeights = balancedWeights(d.classNames, d.labels)
	if d.classWeights != nil {
		log.WithFields(log.Fields{"weights": d.classWeights.Data()}).Info("class weights computed")
	}

	return d, nil
}

// listClasses returns the sorted, deduplicated base names of the immediate
// subdirectories of dataDir. Label indices derive from this order.
func listClasses(dataDir string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, errors.Wrapf(err, "listing classes in %q", dataDir)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	deduped := names[:0]
	for i, name := range names {
		if i == 0 || name != names[i-1] {
			deduped = append(deduped, name)
		}
	}
	return deduped, nil
}

// Len returns the total sample count.
func (d *Dataset) Len() int {
	return len(d.imagePaths)
}

// At decodes and returns the sample at index.
//
// The original image is decoded as 3-channel RGB and the mask as single-channel
// grayscale. Files are not pre-validated at construction, so a missing or
// corrupt file surfaces here.
//
// Arguments:
// - index: Sample position in [0, Len()).
//
// Returns:
// - Sample: The decoded image, mask, and class label.
// - error: ErrIndexOutOfRange, or a decode error naming the offending path.
func (d *Dataset) At(index int) (Sample, error) {
	if index < 0 || index >= len(d.imagePaths) {
		return Sample{}, errors.Wrapf(ErrIndexOutOfRange, "index %d with size %d", index, len(d.imagePaths))
	}

	img, err := d.decoder.Decode(d.imagePaths[index], images.ReadColor)
	if err != nil {
		return Sample{}, errors.Wrapf(err, "decoding image %q", d.imagePaths[index])
	}
	mask, err := d.decoder.Decode(d.maskPaths[index], images.ReadGrayscale)
	if err != nil {
		return Sample{}, errors.Wrapf(err, "decoding mask %q", d.maskPaths[index])
	}

	return Sample{
		Image: img,
		Target: Target{
			Masks: mask,
			Label: d.labelMapping[d.labels[index]],
		},
	}, nil
}

// Classes returns the sorted class-name list.
func (d *Dataset) Classes() []string {
	return d.classNames
}

// ClassToIndex returns the class-name to label-index mapping.
func (d *Dataset) ClassToIndex() map[string]int {
	return d.labelMapping
}

// NumClasses returns the number of classes.
func (d *Dataset) NumClasses() int {
	return len(d.classNames)
}

// ClassWeights returns the balanced per-class weight vector, one float32 per
// class in Classes() order, or nil when the dataset has no classes.
func (d *Dataset) ClassWeights() *tensor.Dense {
	return d.classWeights
}

// ClassDistribution returns the number of samples recorded per class.
func (d *Dataset) ClassDistribution() map[string]int {
	dist := make(map[string]int, len(d.classNames))
	for _, name := range d.classNames {
		dist[name] = 0
	}
	for _, label := range d.labels {
		dist[label]++
	}
	return dist
}

// Summary returns a human-readable description of the index.
func (d *Dataset) Summary() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Dataset %s: %d samples, %d classes\n", d.dataDir, d.Len(), d.NumClasses()))
	dist := d.ClassDistribution()
	for _, name := range d.classNames {
		sb.WriteString(fmt.Sprintf("  %s: %d samples\n", name, dist[name]))
	}
	return sb.String()
}
