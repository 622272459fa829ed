package imageprocessor

import (
	"fmt"
	"os"

	"eigenimages/logging"

	"gocv.io/x/gocv"
)

// BaseImageLoader provides common functionality for all image loaders
type BaseImageLoader struct {
	// Formats this loader can handle
	SupportedFormats []FormatType
}

// CanLoad checks if this loader supports the file's format
func (l *BaseImageLoader) CanLoad(path string) bool {
	format := GetFileFormat(path)

	for _, supported := range l.SupportedFormats {
		if format == supported {
			return fileExists(path)
		}
	}

	return false
}

// DefaultLoadImage reads the file with OpenCV as grayscale
func (l *BaseImageLoader) DefaultLoadImage(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadGrayScale)
	if img.Empty() {
		return img, newImageLoadError("failed to load image", path)
	}
	return img, nil
}

// GrayscaleImageLoader handles the formats accepted into a corpus. OpenCV
// decodes first; the Go image decoders are tried when it returns nothing.
type GrayscaleImageLoader struct {
	BaseImageLoader
}

// NewGrayscaleImageLoader creates a loader for png, jpeg and bmp files
func NewGrayscaleImageLoader() *GrayscaleImageLoader {
	return &GrayscaleImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatPNG,
				FormatJPEG,
				FormatBMP,
			},
		},
	}
}

// LoadImage loads an image as a single-channel 8-bit Mat
func (l *GrayscaleImageLoader) LoadImage(path string) (gocv.Mat, error) {
	img, err := l.DefaultLoadImage(path)
	if err == nil {
		return img, nil
	}
	img.Close()

	goImg, goErr := tryGoImagePackages(path)
	if goErr != nil {
		return gocv.NewMat(), fmt.Errorf("%v (go decoders: %v)", err, goErr)
	}

	logging.DebugLog("OpenCV could not decode %s, using Go decoder", path)
	return grayMatFromGoImage(goImg)
}

// fileExists checks if a file exists and is accessible
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// newImageLoadError creates a standardized error for image loading failures
func newImageLoadError(message, path string) error {
	return fmt.Errorf("%s: %s", message, path)
}
