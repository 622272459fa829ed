// Package imageprocessor loads folders of images into a grayscale corpus
// matrix ready for principal component analysis.
package imageprocessor

import "gocv.io/x/gocv"

// ImageLoader is the interface that all image loaders must implement
type ImageLoader interface {
	// CanLoad checks if the loader can handle the given file
	CanLoad(path string) bool

	// LoadImage loads the image as a single-channel 8-bit Mat
	LoadImage(path string) (gocv.Mat, error)
}
