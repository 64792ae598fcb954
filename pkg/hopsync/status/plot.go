package status

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

func plotWithDefaults() *plot.Plot {

	p := plot.New()
	p.BackgroundColor = color.Black
	p.Title.TextStyle.Color = color.White
	p.Y.Label.TextStyle.Color = color.White
	p.Y.Color = color.White
	p.X.Label.TextStyle.Color = color.White
	p.X.Color = color.White
	p.Legend.TextStyle.Color = color.White
	p.X.Tick.Color = color.White
	p.Y.Tick.Color = color.White
	p.X.Tick.Label.Color = color.White
	p.Y.Tick.Label.Color = color.White

	return p
}

// ordered returns the RSSI readings oldest first.
func (h *signalHistory) ordered() []float64 {
	if len(h.rssi) < h.size {
		return append([]float64(nil), h.rssi...)
	}
	ret := make([]float64, 0, h.size)
	ret = append(ret, h.rssi[h.next:]...)
	return append(ret, h.rssi[:h.next]...)
}

// plotRSSI renders a station's recent RSSI as a PNG.
func plotRSSI(id uint8, h *signalHistory) ([]byte, error) {
	readings := h.ordered()

	p := plotWithDefaults()
	p.Title.Text = fmt.Sprintf("station %d", id)
	p.Y.Label.Text = "RSSI (dBm)"
	p.X.Label.Text = "packet"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(readings))
	for i, rssi := range readings {
		pts[i] = plotter.XY{X: float64(i), Y: rssi}
	}
	if err := plotutil.AddLinePoints(p, "rssi", pts); err != nil {
		return nil, err
	}

	var imageData bytes.Buffer
	w, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return nil, err
	}
	if _, err := w.WriteTo(&imageData); err != nil {
		return nil, err
	}
	return imageData.Bytes(), nil
}
