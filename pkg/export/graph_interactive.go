package export

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
	"github.com/vanderheijden86/csvgraph/pkg/layout"
	"github.com/vanderheijden86/csvgraph/pkg/legend"
	"github.com/vanderheijden86/csvgraph/pkg/metrics"
)

// HTMLOptions configures interactive HTML generation.
type HTMLOptions struct {
	Path        string // Output path; empty generates one from ProjectName
	ProjectName string
	Title       string
	Width       int
	Height      int

	Graph     *graph.Graph
	Positions layout.Positions
	Legend    legend.Legend
}

// htmlNode is a node in the page payload.
type htmlNode struct {
	ID     string            `json:"id"`
	Label  string            `json:"label"`
	Type   string            `json:"type"`
	Color  string            `json:"color"`
	Degree int               `json:"degree"`
	Extra  map[string]string `json:"extra,omitempty"`
}

// htmlLink is an edge in the page payload.
type htmlLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type,omitempty"`
	Count  int    `json:"count"`
}

type htmlPayload struct {
	Title  string         `json:"title"`
	Nodes  []htmlNode     `json:"nodes"`
	Links  []htmlLink     `json:"links"`
	Legend []legend.Entry `json:"legend"`
}

// GenerateInteractiveFilename builds {project}_graph__YYYY_MM_DD__HH_MM.html.
func GenerateInteractiveFilename(projectName string, now time.Time) string {
	safeName := strings.NewReplacer(" ", "_", "/", "_", `\`, "_").Replace(projectName)
	if safeName == "" {
		safeName = "graph"
	}
	return fmt.Sprintf("%s_graph__%s.html", safeName, now.Format("2006_01_02__15_04"))
}

// GenerateInteractiveHTML writes a self-contained HTML page with the graph as
// inline SVG, a legend panel that toggles categories and hover tooltips. It
// returns the path written.
func GenerateInteractiveHTML(opts HTMLOptions) (string, error) {
	if opts.Graph == nil {
		return "", fmt.Errorf("graph is required for html export")
	}
	defer metrics.Timer(metrics.Render)()

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Graph"
	}

	var svgBuf bytes.Buffer
	err := WriteSVG(&svgBuf, SnapshotOptions{
		Title:     title,
		Width:     opts.Width,
		Height:    opts.Height,
		Graph:     opts.Graph,
		Positions: opts.Positions,
		Legend:    opts.Legend,
	})
	if err != nil {
		return "", fmt.Errorf("render svg: %w", err)
	}

	data, err := json.Marshal(buildPayload(title, opts.Graph, opts.Legend))
	if err != nil {
		return "", fmt.Errorf("marshal graph data: %w", err)
	}

	outputPath := opts.Path
	if outputPath == "" {
		outputPath = GenerateInteractiveFilename(opts.ProjectName, time.Now())
	}
	if !strings.HasSuffix(strings.ToLower(outputPath), ".html") {
		outputPath = strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".html"
	}
	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create dir: %w", err)
		}
	}

	page := interactivePage(title, svgBuf.String(), string(data), opts.Graph.NodeCount(), opts.Graph.EdgeCount())
	if err := os.WriteFile(outputPath, []byte(page), 0o644); err != nil {
		return "", err
	}
	return outputPath, nil
}

func buildPayload(title string, g *graph.Graph, l legend.Legend) htmlPayload {
	p := htmlPayload{
		Title:  title,
		Nodes:  make([]htmlNode, 0, g.NodeCount()),
		Links:  make([]htmlLink, 0, g.EdgeCount()),
		Legend: l.Entries,
	}
	for _, n := range g.Nodes() {
		p.Nodes = append(p.Nodes, htmlNode{
			ID:     n.ID,
			Label:  n.Label(),
			Type:   n.Category(),
			Color:  string(n.Color),
			Degree: g.Degree(n.ID),
			Extra:  n.Record.Extra,
		})
	}
	for _, e := range g.Edges() {
		p.Links = append(p.Links, htmlLink{
			Source: e.Source.ID,
			Target: e.Target.ID,
			Type:   e.Record.EdgeType,
			Count:  e.Count(),
		})
	}
	if p.Legend == nil {
		p.Legend = []legend.Entry{}
	}
	return p
}

// interactivePage assembles the HTML document. The JSON payload is already
// HTML-escaped by the encoder, so it is safe inside a script element.
func interactivePage(title, svgMarkup, payload string, nodeCount, edgeCount int) string {
	safeTitle := html.EscapeString(title)
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<style>
  body { margin: 0; font-family: ui-monospace, monospace; background: #f9fafb; color: #111; display: flex; }
  #canvas { flex: 1; overflow: auto; }
  #canvas svg { display: block; }
  #panel { width: 260px; padding: 16px; border-left: 1px solid #ddd; background: #fff; height: 100vh; box-sizing: border-box; overflow-y: auto; }
  #panel h2 { font-size: 14px; margin: 0 0 8px; }
  .entry { display: flex; align-items: center; gap: 8px; padding: 4px; cursor: pointer; border-radius: 4px; }
  .entry:hover { background: #f3f4f6; }
  .entry.off { opacity: 0.35; }
  .swatch { width: 14px; height: 14px; border-radius: 3px; border: 1px solid #222; }
  .count { margin-left: auto; color: #666; }
  .node.hidden, g.hidden { display: none; }
  #tip { position: fixed; pointer-events: none; background: #111; color: #fff; padding: 6px 8px; border-radius: 4px; font-size: 12px; white-space: pre; display: none; }
  .meta { color: #666; font-size: 12px; margin-bottom: 12px; }
</style>
</head>
<body>
<div id="canvas">%s</div>
<div id="panel">
  <h2>%s</h2>
  <div class="meta">%d nodes, %d edges</div>
  <h2>Legend</h2>
  <div id="legend"></div>
</div>
<div id="tip"></div>
<script type="application/json" id="graph-data">%s</script>
<script>
(function () {
  const data = JSON.parse(document.getElementById('graph-data').textContent);
  const byId = new Map(data.nodes.map(n => [n.id, n]));
  const hidden = new Set();
  const legend = document.getElementById('legend');
  const tip = document.getElementById('tip');

  function apply() {
    document.querySelectorAll('#nodes .node').forEach(g => {
      g.classList.toggle('hidden', hidden.has(g.dataset.type));
    });
    document.querySelectorAll('#edges > g').forEach(g => {
      const s = byId.get(g.dataset.source), t = byId.get(g.dataset.target);
      g.classList.toggle('hidden', !s || !t || hidden.has(s.type) || hidden.has(t.type));
    });
  }

  data.legend.forEach(e => {
    const row = document.createElement('div');
    row.className = 'entry';
    const sw = document.createElement('span');
    sw.className = 'swatch';
    sw.style.background = e.color;
    const name = document.createElement('span');
    name.textContent = e.category;
    const count = document.createElement('span');
    count.className = 'count';
    count.textContent = e.count || '';
    row.append(sw, name, count);
    row.addEventListener('click', () => {
      if (hidden.has(e.category)) { hidden.delete(e.category); } else { hidden.add(e.category); }
      row.classList.toggle('off', hidden.has(e.category));
      apply();
    });
    legend.appendChild(row);
  });

  document.querySelectorAll('#nodes .node').forEach(g => {
    const title = g.querySelector('title');
    if (title) { title.remove(); }
    g.addEventListener('mousemove', ev => {
      const n = byId.get(g.dataset.id);
      if (!n) { return; }
      let text = n.id + '\n' + n.label + '\ntype: ' + n.type + '\ndegree: ' + n.degree;
      Object.entries(n.extra || {}).forEach(([k, v]) => { text += '\n' + k + ': ' + v; });
      tip.textContent = text;
      tip.style.left = (ev.clientX + 12) + 'px';
      tip.style.top = (ev.clientY + 12) + 'px';
      tip.style.display = 'block';
    });
    g.addEventListener('mouseleave', () => { tip.style.display = 'none'; });
  });
})();
</script>
</body>
</html>
`, safeTitle, svgMarkup, safeTitle, nodeCount, edgeCount, payload)
}
