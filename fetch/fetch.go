// Package fetch - retrieval of remote dataset archives.
package fetch

import (
	"archive/zip"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// kaggleDownloadURL is the public download endpoint for Kaggle dataset slugs.
const kaggleDownloadURL = "https://www.kaggle.com/api/v1/datasets/download/"

// Downloader fetches a remote dataset and materializes it on the filesystem.
type Downloader interface {
	// Download fetches the dataset named by identifier and extracts it under
	// destDir. The identifier is either a full URL or a Kaggle dataset slug
	// such as "aryashah2k/breast-ultrasound-images-dataset".
	Download(identifier, destDir string) error
}

// HTTPDownloader fetches zip archives over HTTP with retries.
type HTTPDownloader struct {
	client  *retryablehttp.Client
	baseURL string
}

// NewHTTPDownloader creates a downloader backed by a retrying HTTP client.
func NewHTTPDownloader() *HTTPDownloader {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil
	return &HTTPDownloader{
		client:  client,
		baseURL: kaggleDownloadURL,
	}
}

// Download fetches the archive named by identifier and extracts it into
// destDir.
//
// Arguments:
// - identifier: Full URL, or a Kaggle dataset slug resolved against the
//   public download endpoint.
// - destDir: Directory the archive contents are extracted into. Created if
//   absent.
//
// Returns:
// - error: Error if the fetch, the temporary write, or the extraction fails.
func (d *HTTPDownloader) Download(identifier, destDir string) error {
	url := d.resolveURL(identifier)
	log.WithFields(log.Fields{"identifier": identifier, "url": url, "dest": destDir}).
		Info("downloading dataset archive")

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating destination directory %q", destDir)
	}

	resp, err := d.client.Get(url)
	if err != nil {
		return errors.Wrapf(err, "fetching %q", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("fetching %q: unexpected status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp("", "busi-dataset-*.zip")
	if err != nil {
		return errors.Wrap(err, "creating temporary archive file")
	}
	defer os.Remove(tmp.Name())

	written, copyErr := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		return errors.Wrapf(copyErr, "writing archive for %q", identifier)
	}
	log.WithFields(log.Fields{"bytes": written}).Debug("archive downloaded")

	return unzip(tmp.Name(), destDir)
}

// resolveURL maps a dataset identifier to a fetchable URL. Full URLs pass
// through unchanged; anything else is treated as a Kaggle slug.
func (d *HTTPDownloader) resolveURL(identifier string) string {
	if strings.Contains(identifier, "://") {
		return identifier
	}
	return d.baseURL + identifier
}

// unzip extracts every entry of the archive into destDir, refusing entries
// that would escape it.
func unzip(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return errors.Wrapf(err, "opening archive %q", archivePath)
	}
	defer reader.Close()

	root := filepath.Clean(destDir) + string(os.PathSeparator)
	for _, file := range reader.File {
		target := filepath.Join(destDir, file.Name)
		if !strings.HasPrefix(target, root) {
			return errors.Errorf("archive entry %q escapes destination directory", file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errors.Wrapf(err, "creating directory %q", target)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return errors.Wrapf(err, "creating directory for %q", target)
		}
		if err := extractFile(file, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(file *zip.File, target string) error {
	src, err := file.Open()
	if err != nil {
		return errors.Wrapf(err, "opening archive entry %q", file.Name)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.Mode())
	if err != nil {
		return errors.Wrapf(err, "creating %q", target)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return errors.Wrapf(err, "extracting %q", file.Name)
	}
	return nil
}
