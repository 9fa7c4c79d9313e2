package pipeline

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Stages holds the intermediate images of one Estimate call.
type Stages struct {
	Gray    *image.Gray
	Blurred *image.Gray
	Binary  *image.Gray
	Edges   *image.Gray
	Dilated *image.Gray
}

// Named lists the stages in processing order with the file stem Save uses.
func (s *Stages) Named() []NamedStage {
	return []NamedStage{
		{"01_gray", s.Gray},
		{"02_blurred", s.Blurred},
		{"03_binary", s.Binary},
		{"04_edges", s.Edges},
		{"05_dilated", s.Dilated},
	}
}

// NamedStage pairs a stage image with its name.
type NamedStage struct {
	Name  string
	Image *image.Gray
}

// Save writes every non-nil stage to dir as PNG, creating dir if needed, and
// returns the paths written.
func (s *Stages) Save(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	var paths []string
	for _, st := range s.Named() {
		if st.Image == nil {
			continue
		}
		path := filepath.Join(dir, st.Name+".png")
		if err := imaging.Save(st.Image, path); err != nil {
			return paths, fmt.Errorf("failed to save stage %s: %w", st.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
