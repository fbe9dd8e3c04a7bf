package render

import (
	"errors"
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo/float"

	"github.com/MRamiBalles/ParaBot/internal/domain/face"
)

const (
	faceBackground = "#0F1116"
	faceCorner     = 0.18
	rowWidth       = 0.7
	rowHeight      = 0.6

	eyeShrink       = 0.75
	glossyCorner    = 0.34
	glossyMinHeight = 0.12
	auraOpacity     = 0.3
)

// Options controls the output size of a rendered face.
type Options struct {
	Width  float64
	Height float64
	Title  string
}

// DefaultOptions renders a 400x300 face.
func DefaultOptions() Options {
	return Options{Width: 400, Height: 300, Title: "ParaBot"}
}

// errWriter remembers the first write error; svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

func validSize(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// RenderSVG writes one frame of the face as a standalone SVG document.
func RenderSVG(w io.Writer, frame Frame, opts Options) error {
	if !validSize(opts.Width) || !validSize(opts.Height) {
		return errors.New("render: face size must be positive and finite")
	}
	style := face.StyleFor(frame.Emotion)
	open := math.Max(0, math.Min(1, frame.Openness))

	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	canvas.Start(opts.Width, opts.Height)
	if opts.Title != "" {
		canvas.Title(opts.Title)
	}

	canvas.Def()
	canvas.LinearGradient("eye-fill", 0, 0, 0, 100, gradientStops(style.Gradient))
	if style.Shape == face.ShapeGlossy {
		canvas.LinearGradient("eye-shade", 0, 0, 0, 100, []svg.Offcolor{
			{Offset: 0, Color: "#000000", Opacity: 0},
			{Offset: 100, Color: "#000000", Opacity: 0.2},
		})
	}
	if style.Aura != "" {
		canvas.RadialGradient("eye-aura", 50, 50, 90, 50, 50, []svg.Offcolor{
			{Offset: 0, Color: style.Aura, Opacity: auraOpacity},
			{Offset: 100, Color: style.Aura, Opacity: 0},
		})
	}
	canvas.DefEnd()

	corner := math.Min(opts.Width, opts.Height) * faceCorner
	canvas.Roundrect(0, 0, opts.Width, opts.Height, corner, corner, fmt.Sprintf(`fill="%s"`, faceBackground))

	canvas.Gid("eyes-" + string(frame.Emotion))
	for _, cell := range eyeCells(opts.Width, opts.Height, style) {
		switch style.Shape {
		case face.ShapeGlossy:
			glossyEye(canvas, cell, open, frame.SwayY)
		default:
			baseEye(canvas, cell, open)
		}
	}
	canvas.Gend()
	canvas.End()

	if ew.err != nil {
		return fmt.Errorf("render: write svg: %w", ew.err)
	}
	return nil
}

type rect struct{ x, y, w, h float64 }

// eyeCells lays two eyes of the style's aspect out in the centered row.
func eyeCells(width, height float64, style face.EyeStyle) [2]rect {
	rw, rh := width*rowWidth, height*rowHeight
	gap := rw * style.Spacing

	cw := (rw - gap) / 2
	ch := cw / style.Aspect
	if ch > rh {
		ch = rh
		cw = ch * style.Aspect
	}

	left := (width - (2*cw + gap)) / 2
	top := (height - ch) / 2
	return [2]rect{
		{left, top, cw, ch},
		{left + cw + gap, top, cw, ch},
	}
}

func gradientStops(colors []string) []svg.Offcolor {
	if len(colors) == 1 {
		return []svg.Offcolor{{Offset: 0, Color: colors[0], Opacity: 1}}
	}
	stops := make([]svg.Offcolor, len(colors))
	for i, c := range colors {
		stops[i] = svg.Offcolor{
			Offset:  uint8(math.Round(float64(i) * 100 / float64(len(colors)-1))),
			Color:   c,
			Opacity: 1,
		}
	}
	return stops
}

// glossyEye never fully disappears: it keeps a sliver when closed.
func glossyEye(canvas *svg.SVG, c rect, open, swayY float64) {
	h := math.Max(c.h*open, c.h*glossyMinHeight)
	rw, rh := c.w*eyeShrink, h*eyeShrink
	x := c.x + (c.w-rw)/2
	y := c.y + (c.h-rh)/2 + swayY
	r := math.Min(rw, rh) * glossyCorner

	canvas.Roundrect(x, y, rw, rh, r, r, `fill="url(#eye-fill)"`)
	canvas.Roundrect(x, y, rw, rh, r, r, `fill="url(#eye-shade)"`)
	canvas.Circle(x+rw*0.22, y+rh*0.22, rw*0.06, `fill="#FFFFFF"`)
	canvas.Roundrect(x, y, rw, rh, r, r,
		`fill="none"`, `stroke="#000000"`, `stroke-opacity="0.1"`, fmt.Sprintf(`stroke-width="%.2f"`, rw*0.028))
}

func baseEye(canvas *svg.SVG, c rect, open float64) {
	w := c.w * eyeShrink
	h := c.h * open * eyeShrink
	if h <= 0 {
		return
	}
	cx, cy := c.x+c.w/2, c.y+c.h/2

	canvas.Ellipse(cx, cy, w/2, h/2, `fill="url(#eye-aura)"`)
	canvas.Roundrect(cx-w/2, cy-h/2, w, h, w*0.25, h*0.28, `fill="url(#eye-fill)"`)
}
