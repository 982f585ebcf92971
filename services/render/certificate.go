package rendersvc

import (
	"bytes"
	"context"
	"image/color"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font"

	"github.com/mwalimu/elimika/core"
	"github.com/mwalimu/elimika/core/certificate"
)

// A4 landscape at 96 DPI.
const (
	width  = 1123
	height = 794
)

// certificateRenderer draws the certificate artifact as a PNG.
type certificateRenderer struct {
	titleFace font.Face
	nameFace  font.Face
	bodyFace  font.Face
	codeFace  font.Face
}

var _ certificate.Renderer = (*certificateRenderer)(nil)

func NewCertificateRenderer(conf *core.Config) (*certificateRenderer, error) {
	fontBytes, err := os.ReadFile(conf.Certificate.FontPath)
	if err != nil {
		return nil, errors.Wrap(err, "reading certificate font")
	}
	parsed, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, errors.Wrap(err, "parsing certificate font")
	}

	face := func(size float64) font.Face {
		return truetype.NewFace(parsed, &truetype.Options{
			Size:    size,
			DPI:     96,
			Hinting: font.HintingFull,
		})
	}
	return &certificateRenderer{
		titleFace: face(42),
		nameFace:  face(36),
		bodyFace:  face(18),
		codeFace:  face(14),
	}, nil
}

func (r *certificateRenderer) Render(ctx context.Context, data certificate.RenderData) ([]byte, string, error) {
	dc := gg.NewContext(width, height)

	// background
	dc.SetColor(color.White)
	dc.Clear()

	// double border
	dc.SetRGB(0.13, 0.23, 0.42)
	dc.SetLineWidth(6)
	dc.DrawRectangle(30, 30, width-60, height-60)
	dc.Stroke()
	dc.SetLineWidth(2)
	dc.DrawRectangle(44, 44, width-88, height-88)
	dc.Stroke()

	cx := float64(width) / 2

	dc.SetFontFace(r.titleFace)
	dc.SetRGB(0.13, 0.23, 0.42)
	dc.DrawStringAnchored("Certificate of Completion", cx, 160, 0.5, 0.5)

	dc.SetFontFace(r.bodyFace)
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.DrawStringAnchored("This is to certify that", cx, 270, 0.5, 0.5)

	dc.SetFontFace(r.nameFace)
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(data.UserName, cx, 340, 0.5, 0.5)

	dc.SetFontFace(r.bodyFace)
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.DrawStringAnchored("has successfully completed the course", cx, 410, 0.5, 0.5)

	dc.SetFontFace(r.nameFace)
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(data.CourseName, cx, 480, 0.5, 0.5)

	dc.SetFontFace(r.bodyFace)
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.DrawStringAnchored(data.Issuer, cx, 590, 0.5, 0.5)
	dc.DrawStringAnchored(data.IssuedAt.Format("2 January 2006"), cx, 625, 0.5, 0.5)

	dc.SetFontFace(r.codeFace)
	dc.SetRGB(0.4, 0.4, 0.4)
	dc.DrawStringAnchored("Verification code: "+data.Code, cx, height-80, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, "", errors.Wrap(err, "encoding certificate PNG")
	}
	return buf.Bytes(), "image/png", nil
}
