package imageprocessor

import (
	"fmt"
	"image"
	"math"

	"eigenimages/types"

	"gocv.io/x/gocv"
)

// ResizePolicy decides the working shape a corpus is resized to
type ResizePolicy int

const (
	// ResizeFixed resizes every image to 100x100
	ResizeFixed ResizePolicy = iota
	// ResizePercent resizes every image to 10% of the first image's shape
	ResizePercent
)

const (
	fixedWorkingSide = 100
	workingFraction  = 0.1
)

// PolicyFromFlag maps the static-resize switch to a policy
func PolicyFromFlag(staticResize bool) ResizePolicy {
	if staticResize {
		return ResizeFixed
	}
	return ResizePercent
}

func (p ResizePolicy) String() string {
	switch p {
	case ResizeFixed:
		return "fixed"
	case ResizePercent:
		return "percent"
	default:
		return "unknown"
	}
}

// WorkingShape derives the working shape from the reference image shape
func (p ResizePolicy) WorkingShape(original types.Shape) (types.Shape, error) {
	var working types.Shape
	switch p {
	case ResizeFixed:
		working = types.Shape{Height: fixedWorkingSide, Width: fixedWorkingSide}
	case ResizePercent:
		working = types.Shape{
			Height: int(math.Floor(float64(original.Height) * workingFraction)),
			Width:  int(math.Floor(float64(original.Width) * workingFraction)),
		}
	default:
		return types.Shape{}, fmt.Errorf("unknown resize policy %d", int(p))
	}

	if working.IsZero() {
		return types.Shape{}, fmt.Errorf("%w: %s image gives %s at %s policy",
			ErrWorkingShape, original, working, p)
	}
	return working, nil
}

// resizeTo resizes a Mat to the given shape with linear interpolation.
// The caller owns the returned Mat.
func resizeTo(img gocv.Mat, shape types.Shape) (gocv.Mat, error) {
	resized := gocv.NewMat()
	gocv.Resize(img, &resized, image.Point{X: shape.Width, Y: shape.Height}, 0, 0, gocv.InterpolationLinear)
	if resized.Empty() || resized.Rows() != shape.Height || resized.Cols() != shape.Width {
		resized.Close()
		return gocv.NewMat(), fmt.Errorf("resize to %s failed", shape)
	}
	return resized, nil
}

// ResizeGray resizes a row-major 8-bit grayscale buffer from one shape to
// another with linear interpolation.
func ResizeGray(pix []byte, from, to types.Shape) ([]byte, error) {
	if len(pix) != from.Pixels() {
		return nil, fmt.Errorf("buffer has %d pixels, shape %s needs %d", len(pix), from, from.Pixels())
	}

	src, err := gocv.NewMatFromBytes(from.Height, from.Width, gocv.MatTypeCV8UC1, pix)
	if err != nil {
		return nil, fmt.Errorf("wrap buffer: %w", err)
	}
	defer src.Close()

	dst, err := resizeTo(src, to)
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	return dst.ToBytes(), nil
}
