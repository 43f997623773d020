package export

import (
	"context"
	"errors"
	"fmt"
	"html"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"github.com/mattn/go-runewidth"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
	"github.com/vanderheijden86/csvgraph/pkg/layout"
	"github.com/vanderheijden86/csvgraph/pkg/legend"
	"github.com/vanderheijden86/csvgraph/pkg/metrics"
	"github.com/vanderheijden86/csvgraph/pkg/normalize"
)

// ErrUnsupportedFormat is returned for an output format no renderer handles.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// SnapshotOptions controls static graph snapshot export.
type SnapshotOptions struct {
	Path   string // Output path; format inferred from extension when Format empty
	Format string // "svg" or "png" (case-insensitive)
	Title  string // Rendered in the summary block
	Width  int    // Canvas width; 0 sizes the canvas from the node count
	Height int    // Canvas height; 0 sizes the canvas from the node count

	Graph     *graph.Graph
	Positions layout.Positions // nil falls back to a circular placement
	Legend    legend.Legend
}

// SaveSnapshot renders the graph to an SVG or PNG file with a summary block
// and the type legend.
func SaveSnapshot(opts SnapshotOptions) error {
	if opts.Graph == nil {
		return fmt.Errorf("graph is required for snapshot export")
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".png":
			format = "png"
		case ".svg":
			format = "svg"
		case "":
			format = "svg"
			opts.Path += ".svg"
		default:
			return fmt.Errorf("%w: %q (want svg or png)", ErrUnsupportedFormat, filepath.Ext(opts.Path))
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("%w: %q (want svg or png)", ErrUnsupportedFormat, format)
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	sc, err := buildScene(opts)
	if err != nil {
		return err
	}

	defer metrics.Timer(metrics.Render)()

	f, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	if format == "png" {
		return renderPNG(f, sc)
	}
	return renderSVG(f, sc)
}

// WriteSVG renders the snapshot as SVG to w.
func WriteSVG(w io.Writer, opts SnapshotOptions) error {
	if opts.Graph == nil {
		return fmt.Errorf("graph is required for snapshot export")
	}
	sc, err := buildScene(opts)
	if err != nil {
		return err
	}
	return renderSVG(w, sc)
}

// --- scene -----------------------------------------------------------------

const (
	nodeRadius   = 14.0
	padding      = 36.0
	headerHeight = 96.0
	legendWidth  = 200.0
	legendRowH   = 18.0
	labelCells   = 24
)

type sceneNode struct {
	ID       string
	Label    string
	Category string
	Fill     color.RGBA
	Text     color.RGBA
	X, Y     float64
}

type sceneEdge struct {
	From, To *sceneNode
	Type     string
	Count    int
}

type scene struct {
	Nodes  []*sceneNode
	Edges  []sceneEdge
	Legend legend.Legend
	Width  int
	Height int

	Title     string
	NodeCount int
	EdgeCount int
}

func buildScene(opts SnapshotOptions) (scene, error) {
	g := opts.Graph
	positions := opts.Positions
	if positions == nil {
		eng, err := layout.New(layout.Circular, layout.Options{})
		if err != nil {
			return scene{}, err
		}
		if positions, err = eng.Layout(context.Background(), g); err != nil {
			return scene{}, err
		}
	}

	width, height := opts.Width, opts.Height
	side := int(math.Ceil(math.Sqrt(float64(g.NodeCount())))) * 110
	if width <= 0 {
		width = max(960, side+int(legendWidth+3*padding))
	}
	if height <= 0 {
		height = max(640, side+int(headerHeight+2*padding))
	}
	legendH := 36 + legendRowH*float64(opts.Legend.Len())
	height = max(height, int(headerHeight+legendH+2*padding))

	areaW := float64(width) - legendWidth - 3*padding
	areaH := float64(height) - headerHeight - 2*padding
	fitted := positions.Fit(areaW, areaH, nodeRadius*2)

	sc := scene{
		Legend:    opts.Legend,
		Width:     width,
		Height:    height,
		Title:     opts.Title,
		NodeCount: g.NodeCount(),
		EdgeCount: g.EdgeCount(),
	}
	if strings.TrimSpace(sc.Title) == "" {
		sc.Title = "Graph Snapshot"
	}

	byID := make(map[string]*sceneNode, g.NodeCount())
	for _, n := range g.Nodes() {
		pt, ok := fitted[n.ID]
		if !ok {
			pt = layout.Point{X: areaW / 2, Y: areaH / 2}
		}
		sn := &sceneNode{
			ID:       n.ID,
			Label:    truncate(n.Label(), labelCells),
			Category: n.Category(),
			Fill:     n.Color.RGBA(),
			Text:     textOn(n.Color),
			X:        padding + pt.X,
			Y:        padding + headerHeight + pt.Y,
		}
		byID[n.ID] = sn
		sc.Nodes = append(sc.Nodes, sn)
	}
	for _, e := range g.Edges() {
		sc.Edges = append(sc.Edges, sceneEdge{
			From:  byID[e.Source.ID],
			To:    byID[e.Target.ID],
			Type:  e.Record.EdgeType,
			Count: e.Count(),
		})
	}
	return sc, nil
}

// edgeWidth grows logarithmically with the number of consolidated rows.
func edgeWidth(count int) float64 {
	if count <= 1 {
		return 1.5
	}
	return math.Min(1.5+math.Log2(float64(count)), 7)
}

// endpoints trims the segment between two node centers to their circles.
func endpoints(from, to *sceneNode) (x1, y1, x2, y2, ux, uy float64) {
	dx, dy := to.X-from.X, to.Y-from.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return from.X, from.Y, to.X, to.Y, 1, 0
	}
	ux, uy = dx/dist, dy/dist
	return from.X + ux*nodeRadius, from.Y + uy*nodeRadius,
		to.X - ux*nodeRadius, to.Y - uy*nodeRadius, ux, uy
}

// arrowHead returns the three corners of an arrow tip at (x, y) pointing
// along (ux, uy).
func arrowHead(x, y, ux, uy float64) [3][2]float64 {
	const length, half = 9.0, 4.5
	bx, by := x-ux*length, y-uy*length
	return [3][2]float64{
		{x, y},
		{bx - uy*half, by + ux*half},
		{bx + uy*half, by - ux*half},
	}
}

// --- rendering -------------------------------------------------------------

var (
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorEdge     = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorLight    = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorLegendBG = color.RGBA{0xee, 0xee, 0xee, 0xff}
)

func textOn(c normalize.Color) color.RGBA {
	if c.Luminance() < 0.55 {
		return colorLight
	}
	return colorText
}

func renderPNG(w io.Writer, sc scene) error {
	dc := gg.NewContext(sc.Width, sc.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(sc.Width)-32, headerHeight-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	drawSummaryBlock(dc, sc)
	drawLegend(dc, sc)

	for _, e := range sc.Edges {
		dc.SetColor(colorEdge)
		dc.SetLineWidth(edgeWidth(e.Count))
		if e.From == e.To {
			dc.DrawCircle(e.From.X, e.From.Y-nodeRadius, nodeRadius*0.8)
			dc.Stroke()
			continue
		}
		x1, y1, x2, y2, ux, uy := endpoints(e.From, e.To)
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
		tip := arrowHead(x2, y2, ux, uy)
		dc.NewSubPath()
		dc.MoveTo(tip[0][0], tip[0][1])
		dc.LineTo(tip[1][0], tip[1][1])
		dc.LineTo(tip[2][0], tip[2][1])
		dc.ClosePath()
		dc.Fill()
	}

	for _, n := range sc.Nodes {
		dc.SetColor(n.Fill)
		dc.DrawCircle(n.X, n.Y, nodeRadius)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.SetLineWidth(1.2)
		dc.DrawCircle(n.X, n.Y, nodeRadius)
		dc.Stroke()
		dc.SetColor(colorText)
		dc.DrawStringAnchored(n.Label, n.X, n.Y+nodeRadius+12, 0.5, 0.5)
	}

	return dc.EncodePNG(w)
}

func drawSummaryBlock(dc *gg.Context, sc scene) {
	dc.SetColor(colorText)
	dc.DrawStringAnchored(sc.Title, 32, 40, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(fmt.Sprintf("nodes: %d  edges: %d  types: %d", sc.NodeCount, sc.EdgeCount, sc.Legend.Len()), 32, 62, 0, 0.5)
}

func drawLegend(dc *gg.Context, sc scene) {
	x := float64(sc.Width) - legendWidth - padding
	y := headerHeight + padding
	h := 36 + legendRowH*float64(sc.Legend.Len())
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, legendWidth, h, 10)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x, y, legendWidth, h, 10)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored("Legend", x+12, y+18, 0, 0.5)
	for i, e := range sc.Legend.Entries {
		ry := y + 36 + legendRowH*float64(i)
		dc.SetColor(e.Color.RGBA())
		dc.DrawRoundedRectangle(x+12, ry-8, 14, 14, 3)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.DrawRoundedRectangle(x+12, ry-8, 14, 14, 3)
		dc.Stroke()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(legendText(e), x+32, ry, 0, 0.5)
	}
}

func legendText(e legend.Entry) string {
	label := truncate(e.Category, 18)
	if e.Count > 0 {
		return fmt.Sprintf("%s (%d)", label, e.Count)
	}
	return label
}

func renderSVG(w io.Writer, sc scene) error {
	canvas := svg.New(w)
	canvas.Start(sc.Width, sc.Height)
	canvas.Rect(0, 0, sc.Width, sc.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, sc.Width-32, int(headerHeight-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	canvas.Text(32, 44, sc.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(32, 66, fmt.Sprintf("nodes: %d  edges: %d  types: %d", sc.NodeCount, sc.EdgeCount, sc.Legend.Len()),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))

	drawLegendSVG(canvas, sc)

	canvas.Gid("edges")
	for _, e := range sc.Edges {
		style := fmt.Sprintf("stroke:%s;stroke-width:%.1f;fill:none", css(colorEdge), edgeWidth(e.Count))
		attrs := []string{
			fmt.Sprintf(`data-source="%s"`, html.EscapeString(e.From.ID)),
			fmt.Sprintf(`data-target="%s"`, html.EscapeString(e.To.ID)),
		}
		canvas.Group(attrs...)
		canvas.Title(edgeTitle(e))
		if e.From == e.To {
			canvas.Circle(int(e.From.X), int(e.From.Y-nodeRadius), int(nodeRadius)*4/5, style)
			canvas.Gend()
			continue
		}
		x1, y1, x2, y2, ux, uy := endpoints(e.From, e.To)
		canvas.Line(int(x1), int(y1), int(x2), int(y2), style)
		tip := arrowHead(x2, y2, ux, uy)
		canvas.Polygon(
			[]int{int(tip[0][0]), int(tip[1][0]), int(tip[2][0])},
			[]int{int(tip[0][1]), int(tip[1][1]), int(tip[2][1])},
			fmt.Sprintf("fill:%s", css(colorEdge)),
		)
		canvas.Gend()
	}
	canvas.Gend()

	canvas.Gid("nodes")
	for _, n := range sc.Nodes {
		canvas.Group(
			`class="node"`,
			fmt.Sprintf(`data-id="%s"`, html.EscapeString(n.ID)),
			fmt.Sprintf(`data-type="%s"`, html.EscapeString(n.Category)),
		)
		canvas.Title(fmt.Sprintf("%s\n%s\ntype: %s", n.ID, n.Label, n.Category))
		canvas.Circle(int(n.X), int(n.Y), int(nodeRadius),
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.2", css(n.Fill), css(colorStroke)))
		canvas.Text(int(n.X), int(n.Y+nodeRadius+14), n.Label,
			fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace;text-anchor:middle", css(colorText)))
		canvas.Gend()
	}
	canvas.Gend()

	canvas.End()
	return nil
}

func edgeTitle(e sceneEdge) string {
	t := fmt.Sprintf("%s -> %s", e.From.ID, e.To.ID)
	if e.Type != "" {
		t += " (" + e.Type + ")"
	}
	if e.Count > 1 {
		t += fmt.Sprintf(" x%d", e.Count)
	}
	return t
}

func drawLegendSVG(canvas *svg.SVG, sc scene) {
	x := sc.Width - int(legendWidth) - int(padding)
	y := int(headerHeight + padding)
	h := 36 + int(legendRowH)*sc.Legend.Len()
	canvas.Gid("legend")
	canvas.Roundrect(x, y, int(legendWidth), h, 10, 10, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorLegendBG), css(colorStroke)))
	canvas.Text(x+12, y+18, "Legend", fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, e := range sc.Legend.Entries {
		ry := y + 36 + int(legendRowH)*i
		canvas.Roundrect(x+12, ry-8, 14, 14, 3, 3, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(e.Color.RGBA()), css(colorStroke)))
		canvas.Text(x+32, ry+4, legendText(e), fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}
	canvas.Gend()
}

// --- helpers ---------------------------------------------------------------

// truncate shortens s to at most width terminal cells, marking the cut with
// "...".
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
