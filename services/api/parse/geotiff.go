package parse

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/tiff"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
)

const (
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tiffTypeDouble     = 12
)

// GeoTIFF reads the first band of a TIFF and its GeoTIFF model bounds.
// Images without model tags get pixel-space bounds.
type GeoTIFF struct{}

// ParseRaster implements RasterReader.
func (GeoTIFF) ParseRaster(data []byte) (*dataset.RasterSummary, error) {
	if len(data) == 0 {
		return nil, emptyErr("tiff has no content")
	}
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode tiff: %w", err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, emptyErr("tiff has no pixels")
	}

	band := make([]float64, 0, w*h)
	minV, maxV, sum := math.Inf(1), math.Inf(-1), 0.0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := firstBand(img, x, y)
			band = append(band, v)
			minV = math.Min(minV, v)
			maxV = math.Max(maxV, v)
			sum += v
		}
	}

	summary := &dataset.RasterSummary{
		Width:  w,
		Height: h,
		Band:   band,
		Min:    minV,
		Max:    maxV,
		Mean:   sum / float64(len(band)),
		Bounds: dataset.Bounds{MaxX: float64(w), MaxY: float64(h)},
	}

	scale, tie, err := readGeoTags(data)
	if err == nil && len(scale) >= 2 && len(tie) >= 6 {
		minX := tie[3] - tie[0]*scale[0]
		maxY := tie[4] + tie[1]*scale[1]
		summary.Bounds = dataset.Bounds{
			MinX: minX,
			MinY: maxY - float64(h)*scale[1],
			MaxX: minX + float64(w)*scale[0],
			MaxY: maxY,
		}
		summary.Georeferenced = true
	}
	return summary, nil
}

func firstBand(img image.Image, x, y int) float64 {
	switch m := img.(type) {
	case *image.Gray:
		return float64(m.GrayAt(x, y).Y)
	case *image.Gray16:
		return float64(m.Gray16At(x, y).Y)
	default:
		r, _, _, _ := img.At(x, y).RGBA()
		return float64(r >> 8)
	}
}

// readGeoTags scans the first IFD for ModelPixelScale and ModelTiepoint.
func readGeoTags(data []byte) (scale, tie []float64, err error) {
	if len(data) < 8 {
		return nil, nil, errors.New("short tiff header")
	}
	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, nil, errors.New("bad tiff byte order")
	}
	if order.Uint16(data[2:4]) != 42 {
		return nil, nil, errors.New("not a classic tiff")
	}

	ifd := int(order.Uint32(data[4:8]))
	if ifd+2 > len(data) {
		return nil, nil, errors.New("ifd out of range")
	}
	n := int(order.Uint16(data[ifd : ifd+2]))
	for i := 0; i < n; i++ {
		off := ifd + 2 + i*12
		if off+12 > len(data) {
			break
		}
		tag := order.Uint16(data[off : off+2])
		typ := order.Uint16(data[off+2 : off+4])
		count := int(order.Uint32(data[off+4 : off+8]))
		if typ != tiffTypeDouble || (tag != tagModelPixelScale && tag != tagModelTiepoint) {
			continue
		}
		vals, ok := readDoubles(data, order, int(order.Uint32(data[off+8:off+12])), count)
		if !ok {
			continue
		}
		if tag == tagModelPixelScale {
			scale = vals
		} else {
			tie = vals
		}
	}
	if scale == nil || tie == nil {
		return scale, tie, errors.New("no georeferencing tags")
	}
	return scale, tie, nil
}

func readDoubles(data []byte, order binary.ByteOrder, at, count int) ([]float64, bool) {
	if count <= 0 || at < 0 || at+count*8 > len(data) {
		return nil, false
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = math.Float64frombits(order.Uint64(data[at+i*8 : at+i*8+8]))
	}
	return out, true
}
