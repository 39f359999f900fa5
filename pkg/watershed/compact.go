package watershed

import (
	"image"
	"image/color"
	"sort"

	"labelseg/pkg/raster"
)

// Compact renumbers the labels present in labels to 1..k, preserving their
// order, and returns the new raster with k. Background stays Background.
func Compact(labels *raster.Labels) (*raster.Labels, int) {
	remap, k := remapTable(labels.Data)
	out := &raster.Labels{Data: make([]int, len(labels.Data)), Width: labels.Width, Height: labels.Height}
	for i, v := range labels.Data {
		out.Data[i] = remap[v]
	}
	return out, k
}

// remapTable maps every non-background label in data to its rank among the
// distinct labels present, starting at 1.
func remapTable(data []int) (map[int]int, int) {
	seen := map[int]bool{}
	for _, v := range data {
		if v != raster.Background {
			seen[v] = true
		}
	}
	present := make([]int, 0, len(seen))
	for v := range seen {
		present = append(present, v)
	}
	sort.Ints(present)

	remap := make(map[int]int, len(present)+1)
	remap[raster.Background] = raster.Background
	for rank, v := range present {
		remap[v] = rank + 1
	}
	return remap, len(present)
}

// Render compacts labels and encodes them with Encode.
func Render(labels *raster.Labels) image.Image {
	dense, k := Compact(labels)
	return Encode(dense, k)
}

// Encode turns a densely numbered label raster into an image. When maxLabel
// is at most 255 the result is an *image.Gray whose value is the label.
// Beyond that an *image.RGBA carries the label in base-256 digits: R is the
// least significant digit, then G, then B; alpha is opaque.
func Encode(labels *raster.Labels, maxLabel int) image.Image {
	rect := image.Rect(0, 0, labels.Width, labels.Height)

	if maxLabel <= 255 {
		img := image.NewGray(rect)
		for i, v := range labels.Data {
			img.Pix[(i/labels.Width)*img.Stride+i%labels.Width] = uint8(v)
		}
		return img
	}

	img := image.NewRGBA(rect)
	for i, v := range labels.Data {
		img.SetRGBA(i%labels.Width, i/labels.Width, color.RGBA{
			R: uint8(v % 256),
			G: uint8((v / 256) % 256),
			B: uint8((v / 65536) % 256),
			A: 255,
		})
	}
	return img
}

// DecodeRender recovers the label of pixel (x, y) from an image produced
// by Render or Encode.
func DecodeRender(img image.Image, x, y int) int {
	switch m := img.(type) {
	case *image.Gray:
		return int(m.GrayAt(x, y).Y)
	case *image.RGBA:
		c := m.RGBAAt(x, y)
		return int(c.R) + int(c.G)*256 + int(c.B)*65536
	}
	g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
	return int(g.Y)
}
