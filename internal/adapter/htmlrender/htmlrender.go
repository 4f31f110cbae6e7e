// Package htmlrender defines the interface boundary to the HTML-to-PDF
// renderer. The renderer itself is an external collaborator explicitly out
// of scope for this core (spec §1): "Out of scope (external collaborators):
// ... the HTML-to-PDF renderer ... Each is treated as an interface the
// core consumes (see §6)." This package carries only that interface plus
// a minimal placeholder implementation sufficient for adapters that need
// to synthesize a PDF from scraped HTML (the community-blog and lab-blog
// adapters) when no external renderer has been wired in.
package htmlrender

import (
	"context"
	"fmt"
	"os"
)

// Renderer converts an HTML document into a PDF file at destPath.
type Renderer interface {
	RenderToPDF(ctx context.Context, html, destPath string) error
}

// Placeholder writes the HTML document unchanged as the file content instead
// of an actual PDF. It exists so the pipeline can be exercised end-to-end
// without the real renderer wired in; callers needing a genuine PDF must
// supply their own Renderer (e.g. backed by the desktop GUI's renderer
// collaborator).
type Placeholder struct{}

func (Placeholder) RenderToPDF(ctx context.Context, html, destPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if html == "" {
		return fmt.Errorf("htmlrender: empty document")
	}
	return os.WriteFile(destPath, []byte(html), 0644)
}
