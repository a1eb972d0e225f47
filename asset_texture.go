package meadow

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DecodedTexture holds tightly packed RGBA8 texels.
type DecodedTexture struct {
	Pixels []uint8
	Width  uint32
	Height uint32
}

func DecodeTextureFile(path string) (*DecodedTexture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture %s: %w", path, err)
	}
	defer f.Close()

	tex, err := DecodeTexture(f)
	if err != nil {
		return nil, fmt.Errorf("decode texture %s: %w", path, err)
	}
	return tex, nil
}

// DecodeTexture accepts png, jpeg and webp.
func DecodeTexture(r io.Reader) (*DecodedTexture, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	rgba := toRGBA(img)
	b := rgba.Bounds()
	return &DecodedTexture{
		Pixels: rgba.Pix,
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
	}, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == 4*rgba.Rect.Dx() && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
