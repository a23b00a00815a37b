package pdfinfo

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ledongthucInspector is the fallback backend. It is more permissive
// about cross-reference damage than pdfcpu but exposes less page
// metadata.
type ledongthucInspector struct{}

func (i *ledongthucInspector) Backend() Backend { return BackendLedongthuc }

func (i *ledongthucInspector) Inspect(path string) (Info, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	info := Info{
		PageCount: r.NumPage(),
		Backend:   BackendLedongthuc,
	}

	for n := 1; n <= info.PageCount; n++ {
		page := r.Page(n)
		if page.V.IsNull() {
			info.Pages = append(info.Pages, letterDim())
			continue
		}
		info.Pages = append(info.Pages, mediaBoxDim(page.V))
	}
	return info, nil
}

// mediaBoxDim reads a page's media box, walking up the page tree for
// the inherited attribute when the page dictionary omits it.
func mediaBoxDim(page pdf.Value) PageDim {
	node := page
	for !node.IsNull() {
		box := node.Key("MediaBox")
		if !box.IsNull() && box.Len() == 4 {
			return PageDim{
				Width:  box.Index(2).Float64() - box.Index(0).Float64(),
				Height: box.Index(3).Float64() - box.Index(1).Float64(),
			}
		}
		node = node.Key("Parent")
	}
	return letterDim()
}

// letterDim is the US Letter default used when a page carries no
// usable media box.
func letterDim() PageDim {
	return PageDim{Width: 612, Height: 792}
}
