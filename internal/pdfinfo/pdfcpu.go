package pdfinfo

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfcpuInspector reads structure via pdfcpu with relaxed validation,
// which tolerates the slightly malformed PDFs office suites emit.
type pdfcpuInspector struct{}

func (i *pdfcpuInspector) Backend() Backend { return BackendPDFCPU }

func (i *pdfcpuInspector) Inspect(path string) (Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return Info{}, fmt.Errorf("reading PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return Info{}, fmt.Errorf("resolving page count: %w", err)
	}

	info := Info{
		PageCount: ctx.PageCount,
		Backend:   BackendPDFCPU,
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return Info{}, fmt.Errorf("reading page dimensions: %w", err)
	}
	for _, d := range dims {
		info.Pages = append(info.Pages, PageDim{Width: d.Width, Height: d.Height})
	}
	return info, nil
}
