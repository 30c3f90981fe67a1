package support

import (
	"fmt"
	"image"
	"image/color"

	"github.com/MeKo-Tech/homowarp/internal/testutil"
	"github.com/MeKo-Tech/homowarp/internal/utils"
	"github.com/cucumber/godog"
	"github.com/lucasb-eyer/go-colorful"
)

// aSolidImage writes a width x height image of one colour.
func (testCtx *TestContext) aSolidImage(width, height int, hex, name string) error {
	c, err := parseHex(hex)
	if err != nil {
		return err
	}
	return utils.SaveImage(testutil.SolidImage(width, height, c), testCtx.Path(name), utils.DefaultJPEGQuality)
}

// aCoordinateImage writes an image whose pixels encode their own position.
func (testCtx *TestContext) aCoordinateImage(width, height int, name string) error {
	return utils.SaveImage(testutil.CoordImage(width, height), testCtx.Path(name), utils.DefaultJPEGQuality)
}

// theImageShouldBe checks the decoded size of an image file.
func (testCtx *TestContext) theImageShouldBe(name string, width, height int) error {
	_, meta, err := utils.LoadImage(testCtx.Path(name))
	if err != nil {
		return err
	}
	if meta.Width != width || meta.Height != height {
		return fmt.Errorf("image %s is %dx%d, want %dx%d", name, meta.Width, meta.Height, width, height)
	}
	return nil
}

// thePixelShouldBe checks one pixel of an image file against a hex colour.
func (testCtx *TestContext) thePixelShouldBe(x, y int, name, hex string) error {
	img, _, err := utils.LoadImage(testCtx.Path(name))
	if err != nil {
		return err
	}
	want, err := parseHex(hex)
	if err != nil {
		return err
	}
	return checkPixel(img, x, y, want)
}

func checkPixel(img image.Image, x, y int, want color.NRGBA) error {
	b := img.Bounds()
	if !(image.Point{X: b.Min.X + x, Y: b.Min.Y + y}).In(b) {
		return fmt.Errorf("pixel (%d,%d) is outside %v", x, y, b)
	}
	got := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
	if got != want {
		return fmt.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, want)
	}
	return nil
}

func parseHex(hex string) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// RegisterImageSteps registers image fixture and assertion steps.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a (\d+)x(\d+) image filled with "([^"]*)" saved as "([^"]*)"$`, testCtx.aSolidImage)
	sc.Step(`^a (\d+)x(\d+) coordinate image saved as "([^"]*)"$`, testCtx.aCoordinateImage)
	sc.Step(`^the image "([^"]*)" should be (\d+)x(\d+)$`, testCtx.theImageShouldBe)
	sc.Step(`^the pixel at (\d+),(\d+) of "([^"]*)" should be "([^"]*)"$`, testCtx.thePixelShouldBe)
}
