package layout

import (
	"fmt"

	"github.com/skip2/go-qrcode"

	"github.com/ivlev/carousel/internal/model"
)

// qrModules draws content as a QR code whose right edge is at right,
// vertically filling [top, top+height]. It returns the side length.
func qrModules(d *svgDoc, content string, right, top, height float64, c model.Color) (float64, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return 0, fmt.Errorf("qr code: %w", err)
	}
	q.DisableBorder = true
	bm := q.Bitmap()
	if len(bm) == 0 {
		return 0, nil
	}

	module := height / float64(len(bm))
	side := module * float64(len(bm))
	x0 := right - side

	var p pathData
	for y, row := range bm {
		for x, dark := range row {
			if dark {
				p.square(x0+float64(x)*module, top+float64(y)*module, module)
			}
		}
	}
	d.path(&p, c)
	return side, nil
}
