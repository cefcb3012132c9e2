package cmd

import (
	"fmt"
	"image/png"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sono-ai/go-busi/config"
	"github.com/sono-ai/go-busi/dataset"
	"github.com/sono-ai/go-busi/fetch"
	"github.com/sono-ai/go-busi/images"
)

var (
	inspectConfig config.Config
	thumbnailPath string
	thumbnailSide int
)

func initInspect() {
	inspectCmd.PersistentFlags().StringVar(&inspectConfig.DataDir,
		"data-dir", "data/Dataset_BUSI_with_GT", "Dataset root directory, one subdirectory per class")
	inspectCmd.PersistentFlags().StringVar(&inspectConfig.RemoteSource,
		"remote-source", "", "Remote dataset (URL or Kaggle slug) to download when the data directory is missing")
	inspectCmd.PersistentFlags().StringVar(&thumbnailPath,
		"thumbnail", "", "Write a PNG thumbnail of the first sample to this path")
	inspectCmd.PersistentFlags().IntVar(&thumbnailSide,
		"thumbnail-side", 256, "Maximum side length of the thumbnail in pixels")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Build the dataset index and print the first sample's shapes",
	Run: func(cmd *cobra.Command, args []string) {
		if err := inspectConfig.Validate(); err != nil {
			log.Fatalf("invalid configuration: %v", err)
		}

		dsArgs := dataset.Args{
			DataDir:      inspectConfig.DataDir,
			RemoteSource: inspectConfig.RemoteSource,
		}
		if inspectConfig.RemoteSource != "" {
			dsArgs.Downloader = fetch.NewHTTPDownloader()
		}

		ds, err := dataset.New(dsArgs)
		if err != nil {
			log.Fatalf("failed to build dataset index: %v", err)
		}

		fmt.Print(ds.Summary())
		if weights := ds.ClassWeights(); weights != nil {
			fmt.Printf("class weights: %v\n", weights.Data())
		}

		if ds.Len() == 0 {
			log.Warn("dataset contains no samples")
			return
		}

		sample, err := ds.At(0)
		if err != nil {
			log.Fatalf("failed to load first sample: %v", err)
		}
		fmt.Printf("image shape: %v, mask shape: %v, label: %d\n",
			sample.Image.Shape(), sample.Target.Masks.Shape(), sample.Target.Label)

		if thumbnailPath != "" {
			if err := writeThumbnail(sample, thumbnailPath, thumbnailSide); err != nil {
				log.Fatalf("failed to write thumbnail: %v", err)
			}
			fmt.Printf("thumbnail written to %s\n", thumbnailPath)
		}
	},
}

func writeThumbnail(sample dataset.Sample, path string, maxSide int) error {
	img, err := images.Thumbnail(sample.Image, maxSide)
	if err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	return png.Encode(out, img)
}
