package dataset

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// samplePattern matches original image files named "<stem> (<N>).png". The
// greedy stem keeps the last parenthesized group as the sample number, and the
// anchored suffix excludes "<stem> (<N>)_mask.png" files.
var samplePattern = regexp.MustCompile(`^(.+) \((\d+)\)\.png$`)

// scan enumerates samples for every class, visiting classes in sorted order
// and samples within a class ordered by sample number, so the index is
// deterministic across filesystems. Each match is paired with its expected
// mask path; mask existence is not verified here and surfaces at decode time.
func (d *Dataset) scan() error {
	log.WithFields(log.Fields{"dir": d.dataDir}).Info("scanning data directory")

	for _, class := range d.classNames {
		classDir := filepath.Join(d.dataDir, class)
		entries, err := os.ReadDir(classDir)
		if err != nil {
			return errors.Wrapf(err, "scanning class directory %q", classDir)
		}

		type match struct {
			name string
			num  int
		}
		var found []match
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			groups := samplePattern.FindStringSubmatch(entry.Name())
			if groups == nil {
				continue
			}
			num, err := strconv.Atoi(groups[2])
			if err != nil {
				continue
			}
			found = append(found, match{name: entry.Name(), num: num})
		}
		sort.Slice(found, func(i, j int) bool {
			if found[i].num != found[j].num {
				return found[i].num < found[j].num
			}
			return found[i].name < found[j].name
		})

		for _, f := range found {
			maskName := strings.TrimSuffix(f.name, ".png") + "_mask.png"
			d.imagePaths = append(d.imagePaths, filepath.Join(classDir, f.name))
			d.maskPaths = append(d.maskPaths, filepath.Join(classDir, maskName))
			d.labels = append(d.labels, class)
		}
	}

	log.WithFields(log.Fields{
		"samples": len(d.imagePaths),
		"classes": len(d.classNames),
	}).Info("scan complete")
	return nil
}
