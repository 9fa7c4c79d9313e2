package orientation

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Params controls the candidate angles tried by Search.
type Params struct {
	MinDegrees  int // First candidate angle
	MaxDegrees  int // Last candidate angle, inclusive when reachable by StepDegrees
	StepDegrees int // Increment between candidates; bounds the angular resolution
	Workers     int // Candidates evaluated concurrently. Values below 2 scan sequentially.
}

// NewParams returns the reference search: 0, 5, ..., 180 degrees, one at a time.
func NewParams() *Params {
	return &Params{
		MinDegrees:  0,
		MaxDegrees:  180,
		StepDegrees: 5,
		Workers:     1,
	}
}

// Angles lists the candidate angles in ascending order. It returns nil when
// the params do not validate.
func (p *Params) Angles() []int {
	if p.Validate() != nil {
		return nil
	}
	var angles []int
	for a := p.MinDegrees; a <= p.MaxDegrees; a += p.StepDegrees {
		angles = append(angles, a)
	}
	return angles
}

// Validate reports ErrInvalidParams when the step is not positive or the
// range is inverted.
func (p *Params) Validate() error {
	if p.StepDegrees <= 0 {
		return fmt.Errorf("%w: step must be positive, got %d", ErrInvalidParams, p.StepDegrees)
	}
	if p.MaxDegrees < p.MinDegrees {
		return fmt.Errorf("%w: max %d below min %d", ErrInvalidParams, p.MaxDegrees, p.MinDegrees)
	}
	return nil
}

// Candidate is the score one rotation angle achieved.
type Candidate struct {
	Angle int     `json:"angle"`
	Score float64 `json:"score"`
}

// Result is the outcome of an angle search.
type Result struct {
	// Angle is the winning candidate in degrees. Rotating the input by Angle
	// (counter-clockwise) brings the target parallel to the image rows.
	Angle int `json:"angle"`

	// Score is the winning candidate's peak row sum.
	Score float64 `json:"score"`

	// Candidates holds every evaluated angle in ascending angle order.
	Candidates []Candidate `json:"candidates,omitempty"`

	// Prominence is how many standard deviations the winning score sits above
	// the mean candidate score. Zero when all candidates scored the same.
	Prominence float64 `json:"prominence"`
}

// BestAngle returns the candidate angle in {0, 5, ..., 180} whose rotation of g
// produces the largest single-row pixel sum. Ties go to the larger angle.
func BestAngle(g Grid) (int, error) {
	res, err := Search(context.Background(), g, NewParams())
	if err != nil {
		return 0, err
	}
	return res.Angle, nil
}

// Search rotates g about its center by every candidate angle in params, scores
// each rotation by its maximum row sum, and returns the best-scoring angle.
//
// Candidates are independent. With params.Workers > 1 they are evaluated
// concurrently, but selection always happens after every score is in: the
// (score, angle) pairs are sorted ascending and the last one wins, so an equal
// score resolves to the larger angle regardless of evaluation order.
func Search(ctx context.Context, g Grid, params *Params) (*Result, error) {
	if params == nil {
		params = NewParams()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if g.Rows() == 0 || g.Cols() == 0 {
		return nil, ErrEmptyGrid
	}

	angles := params.Angles()
	rot := newRotator(g)
	candidates := make([]Candidate, len(angles))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(params.Workers, 1))
	for i, angle := range angles {
		i, angle := i, angle
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			score, err := rot.score(angle)
			if err != nil {
				return fmt.Errorf("failed to score %d degrees: %w", angle, err)
			}
			candidates[i] = Candidate{Angle: angle, Score: score}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	best := pickBest(candidates)
	return &Result{
		Angle:      best.Angle,
		Score:      best.Score,
		Candidates: candidates,
		Prominence: prominence(candidates, best.Score),
	}, nil
}

// score rotates the source by angle and returns its largest row sum.
func (r *rotator) score(angle int) (float64, error) {
	rotated, err := r.rotate(float64(angle))
	if err != nil {
		return 0, err
	}
	return floats.Max(rowSums(rotated.Pix, rotated.Stride, r.cols, r.rows)), nil
}

// rowSums reduces an image to one column holding the sum of each row.
func rowSums(pix []uint8, stride, cols, rows int) []float64 {
	sums := make([]float64, rows)
	for y := 0; y < rows; y++ {
		var sum float64
		for _, v := range pix[y*stride : y*stride+cols] {
			sum += float64(v)
		}
		sums[y] = sum
	}
	return sums
}

// pickBest sorts a copy of the candidates by (score, angle) and returns the last.
func pickBest(candidates []Candidate) Candidate {
	sorted := slices.Clone(candidates)
	slices.SortFunc(sorted, func(a, b Candidate) int {
		if c := cmp.Compare(a.Score, b.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Angle, b.Angle)
	})
	return sorted[len(sorted)-1]
}

func prominence(candidates []Candidate, best float64) float64 {
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = c.Score
	}
	if len(scores) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(scores, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return (best - mean) / std
}
