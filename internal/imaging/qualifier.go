// Package imaging filters extracted archive entries down to qualifying stamp
// images and normalizes grayscale brush masks into transparent stamps.
package imaging

import (
	"fmt"
	"image"
	"image/color"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	// Brushset archives carry PNG brush shapes; JPEG and GIF previews show
	// up in the wild and are decoded the same way.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/proconverter/proconverter-lemons/internal/domain"
	"github.com/proconverter/proconverter-lemons/internal/metrics"
)

// skipReason classifies why an extracted entry did not qualify. Decode
// failure is an expected, filtered outcome, not an error.
type skipReason string

const (
	skipNotImage     skipReason = "not_image"
	skipTooSmall     skipReason = "too_small"
	skipExcludedName skipReason = "excluded_name"
)

// Qualifier walks an extracted archive root and emits qualifying artifacts.
type Qualifier struct {
	minDimension int
}

func NewQualifier(minDimension int) *Qualifier {
	return &Qualifier{minDimension: minDimension}
}

// Qualify visits every regular file under root in lexicographic path order
// (the committed ordering contract), decodes each candidate, filters by the
// minimum-dimension threshold and the auxiliary-name exclusion list, and
// optionally converts grayscale masks to transparent RGBA stamps. Returns
// domain.ErrNoQualifyingImages when nothing survives the filters.
func (q *Qualifier) Qualify(root string, normalizeGrayscale bool) ([]domain.Artifact, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk extracted archive: %w", err)
	}
	sort.Strings(paths)

	var artifacts []domain.Artifact
	for _, path := range paths {
		artifact, reason := q.qualifyFile(path, normalizeGrayscale)
		if artifact == nil {
			metrics.SkippedEntriesTotal.WithLabelValues(string(reason)).Inc()
			slog.Debug("Skipping entry", "path", filepath.Base(path), "reason", reason)
			continue
		}
		artifacts = append(artifacts, *artifact)
	}

	if len(artifacts) == 0 {
		return nil, domain.ErrNoQualifyingImages
	}
	return artifacts, nil
}

func (q *Qualifier) qualifyFile(path string, normalizeGrayscale bool) (*domain.Artifact, skipReason) {
	if isExcludedName(path) {
		return nil, skipExcludedName
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, skipNotImage
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		// Wrong format, truncated, or not an image at all.
		return nil, skipNotImage
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < q.minDimension || height < q.minDimension {
		return nil, skipTooSmall
	}

	grayscale := isGrayscale(img)
	if grayscale && normalizeGrayscale {
		img = grayToTransparent(img)
	}

	return &domain.Artifact{
		Image:      img,
		Width:      width,
		Height:     height,
		Grayscale:  grayscale,
		SourcePath: path,
	}, ""
}

// isExcludedName filters known non-brush auxiliary entries: the QuickLook
// preview bundled with every brushset qualifies on size but is not a brush.
func isExcludedName(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if base == "thumbnail.png" {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if strings.EqualFold(part, "QuickLook") {
			return true
		}
	}
	return false
}

func isGrayscale(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	}
	return false
}

// grayToTransparent turns a luminance-only brush mask into a stamp: alpha is
// the original luminance, RGB is zero.
func grayToTransparent(img image.Image) image.Image {
	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			lum := color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			out.SetNRGBA(x, y, color.NRGBA{R: 0, G: 0, B: 0, A: lum})
		}
	}
	return out
}
