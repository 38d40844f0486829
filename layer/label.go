package layer

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/go-text/typesetting/di"
	gotext "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/bidi"

	"github.com/gogpu/tileview"
	"github.com/gogpu/tileview/gpu"
)

// DefaultLabelSize is the label font size in screen pixels.
const DefaultLabelSize = 12

// labelPadding is the empty border around label text, in pixels.
const labelPadding = 2

// The label font is parsed once; both parsed forms are read-only.
var (
	labelFontOnce sync.Once
	labelShapeFnt *gotext.Font
	labelDrawFnt  *opentype.Font
	labelFontErr  error
)

func loadLabelFont() (*gotext.Font, *opentype.Font, error) {
	labelFontOnce.Do(func() {
		face, err := gotext.ParseTTF(bytes.NewReader(goregular.TTF))
		if err != nil {
			labelFontErr = err
			return
		}
		labelShapeFnt = face.Font
		labelDrawFnt, labelFontErr = opentype.Parse(goregular.TTF)
	})
	return labelShapeFnt, labelDrawFnt, labelFontErr
}

// labelFace measures labels with HarfBuzz shaping and rasterizes them
// with an opentype face.
type labelFace struct {
	size    float64
	shaper  shaping.HarfbuzzShaper
	shape   *gotext.Face
	draw    font.Face
	metrics font.Metrics
}

func newLabelFace(size float64) (*labelFace, error) {
	shapeFont, drawFont, err := loadLabelFont()
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(drawFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	return &labelFace{
		size:    size,
		shape:   gotext.NewFace(shapeFont),
		draw:    face,
		metrics: face.Metrics(),
	}, nil
}

// advance returns the shaped width of s in pixels.
func (f *labelFace) advance(s string) float64 {
	runes := []rune(s)
	if len(runes) == 0 {
		return 0
	}
	out := f.shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: textDirection(s),
		Face:      f.shape,
		Size:      fixed.Int26_6(f.size * 64),
		Script:    scriptOf(runes),
		Language:  language.NewLanguage("en"),
	})
	return math.Abs(float64(out.Advance) / 64)
}

// rasterize draws s on a transparent image sized to fit it.
func (f *labelFace) rasterize(s string, col color.NRGBA) *image.RGBA {
	w := int(math.Ceil(f.advance(s))) + 2*labelPadding
	if dw := font.MeasureString(f.draw, s).Ceil() + 2*labelPadding; dw > w {
		w = dw
	}
	ascent := f.metrics.Ascent.Ceil()
	h := ascent + f.metrics.Descent.Ceil() + 2*labelPadding
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: f.draw,
		Dot:  fixed.P(labelPadding, labelPadding+ascent),
	}
	d.DrawString(s)
	return img
}

func (f *labelFace) Close() error { return f.draw.Close() }

// textDirection returns the base direction of a label: right to left when
// most of its characters are in right-to-left runs.
func textDirection(s string) di.Direction {
	if s == "" {
		return di.DirectionLTR
	}
	var p bidi.Paragraph
	if _, err := p.SetString(s, bidi.DefaultDirection(bidi.Neutral)); err != nil {
		return di.DirectionLTR
	}
	ordering, err := p.Order()
	if err != nil {
		return di.DirectionLTR
	}
	var ltr, rtl int
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		start, end := run.Pos()
		switch run.Direction() {
		case bidi.RightToLeft:
			rtl += end - start + 1
		case bidi.LeftToRight:
			ltr += end - start + 1
		}
	}
	if rtl > ltr {
		return di.DirectionRTL
	}
	return di.DirectionLTR
}

func scriptOf(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

// label is one uploaded label texture.
type label struct {
	text    string
	texture gpu.TextureID
	size    image.Point
	rtl     bool
}

// labelSet keeps the label textures of one layer, keyed by text.
type labelSet struct {
	backend gpu.Backend
	size    float64
	color   color.NRGBA
	face    *labelFace
	labels  map[string]*label
}

func newLabelSet(backend gpu.Backend, size float64, col color.NRGBA) *labelSet {
	if size <= 0 {
		size = DefaultLabelSize
	}
	return &labelSet{backend: backend, size: size, color: col, labels: make(map[string]*label)}
}

// get returns the label for text, uploading it on first use.
func (ls *labelSet) get(text string) (*label, error) {
	if l, ok := ls.labels[text]; ok {
		return l, nil
	}
	if ls.face == nil {
		face, err := newLabelFace(ls.size)
		if err != nil {
			return nil, err
		}
		ls.face = face
	}
	img := ls.face.rasterize(text, ls.color)
	b := img.Bounds()
	id, err := ls.backend.UploadTexture(b.Dx(), b.Dy(), img.Pix)
	if err != nil {
		return nil, err
	}
	l := &label{text: text, texture: id, size: b.Size(), rtl: textDirection(text) == di.DirectionRTL}
	ls.labels[text] = l
	return l, nil
}

// lookup returns an uploaded label without uploading.
func (ls *labelSet) lookup(text string) *label { return ls.labels[text] }

// corners places l with its start at anchor, offset by a few screen
// pixels: to the right of anchor for left-to-right text, to its left for
// right-to-left text. spacing converts screen pixels to viewport units.
func (l *label) corners(anchor, spacing tileview.Point) [4]tileview.Point {
	x0, x1 := 4.0, 4.0+float64(l.size.X)
	if l.rtl {
		x0, x1 = -x1, -4.0
	}
	y0, y1 := 4.0, 4.0+float64(l.size.Y)
	at := func(x, y float64) tileview.Point {
		return anchor.Add(tileview.Pt(x*spacing.X, y*spacing.Y))
	}
	return [4]tileview.Point{at(x0, y0), at(x1, y0), at(x0, y1), at(x1, y1)}
}

// drop releases labels whose text is not in keep.
func (ls *labelSet) drop(keep map[string]bool) {
	for text, l := range ls.labels {
		if !keep[text] {
			ls.backend.ReleaseTexture(l.texture)
			delete(ls.labels, text)
		}
	}
}

// release frees every label texture and the face.
func (ls *labelSet) release() {
	ls.drop(nil)
	if ls.face != nil {
		_ = ls.face.Close()
		ls.face = nil
	}
}
