package images

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "go-image-assessor/internal/errors"
)

// ROI is a rectangular region [X0, X1) x [Y0, Y1) in pixel coordinates
type ROI struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

// ParseROI parses the "x0xy0,x1xy1" notation, e.g. "0x0,64x48"
func ParseROI(s string) (ROI, error) {
	points := strings.Split(strings.TrimSpace(s), ",")
	if len(points) != 2 {
		return ROI{}, apperrors.NewValidationError(
			fmt.Sprintf("ROI %q must have the form x0xy0,x1xy1", s), nil)
	}

	var coords [4]int
	for i, point := range points {
		parts := strings.Split(strings.TrimSpace(point), "x")
		if len(parts) != 2 {
			return ROI{}, apperrors.NewValidationError(
				fmt.Sprintf("ROI point %q must have the form XxY", point), nil)
		}
		for j, part := range parts {
			v, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return ROI{}, apperrors.NewValidationError("ROI points must be integers", err)
			}
			coords[i*2+j] = v
		}
	}

	roi := ROI{X0: coords[0], Y0: coords[1], X1: coords[2], Y1: coords[3]}
	if roi.X1 <= roi.X0 || roi.Y1 <= roi.Y0 {
		return ROI{}, apperrors.NewValidationError(
			fmt.Sprintf("ROI %q has no area", s), nil)
	}
	return roi, nil
}

// Validate checks the region fits an image of the given size
func (r ROI) Validate(width, height int) error {
	if r.X0 < 0 || r.Y0 < 0 || r.X1 > width || r.Y1 > height || r.X1 <= r.X0 || r.Y1 <= r.Y0 {
		return apperrors.NewValidationError(
			fmt.Sprintf("ROI %s does not fit a %dx%d image", r, width, height), nil)
	}
	return nil
}

func (r ROI) String() string {
	return fmt.Sprintf("%dx%d,%dx%d", r.X0, r.Y0, r.X1, r.Y1)
}
