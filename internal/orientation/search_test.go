package orientation

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

// barImage draws a 71x3 bright bar through the centre of a 101x101 frame and
// tilts it so that rotating by angle brings it back to horizontal.
func barImage(t *testing.T, angle int) *image.Gray {
	t.Helper()
	flat := newGray(101, 101, 0)
	fillRect(flat, 15, 49, 86, 52, 255)
	if angle == 0 {
		return flat
	}
	tilted, err := Rotate(NewGrayGrid(flat), -float64(angle))
	require.NoError(t, err)
	return tilted
}

func TestParams_Angles(t *testing.T) {
	angles := NewParams().Angles()
	require.Len(t, angles, 37)
	require.Equal(t, 0, angles[0])
	require.Equal(t, 180, angles[36])

	p := &Params{MinDegrees: 10, MaxDegrees: 24, StepDegrees: 7}
	require.Equal(t, []int{10, 17, 24}, p.Angles())

	p = &Params{MinDegrees: 0, MaxDegrees: 10, StepDegrees: 4}
	require.Equal(t, []int{0, 4, 8}, p.Angles())
}

func TestParams_AnglesInvalid(t *testing.T) {
	for _, p := range []*Params{
		{MinDegrees: 0, MaxDegrees: 180, StepDegrees: 0},
		{MinDegrees: 0, MaxDegrees: 180, StepDegrees: -5},
		{MinDegrees: 90, MaxDegrees: 10, StepDegrees: 5},
	} {
		require.ErrorIs(t, p.Validate(), ErrInvalidParams)
		require.Nil(t, p.Angles(), "params %+v", *p)
	}
	require.NoError(t, NewParams().Validate())
}

func TestBestAngle_RecoversBarTilt(t *testing.T) {
	for _, want := range []int{30, 45, 60, 90, 135} {
		img := barImage(t, want)

		got, err := BestAngle(NewGrayGrid(img))
		require.NoError(t, err)
		require.Equal(t, want, got, "bar tilted by %d", want)
	}
}

func TestBestAngle_TieGoesToLargerAngle(t *testing.T) {
	// The centre row of a uniform odd square stays fully covered at every
	// angle, so all candidates score the same.
	img := newGray(21, 21, 100)

	res, err := Search(context.Background(), NewGrayGrid(img), nil)
	require.NoError(t, err)
	for _, c := range res.Candidates {
		require.Equal(t, 2100.0, c.Score, "angle %d", c.Angle)
	}
	require.Equal(t, 180, res.Angle)
	require.Zero(t, res.Prominence)
}

func TestPickBest(t *testing.T) {
	candidates := []Candidate{
		{Angle: 0, Score: 5},
		{Angle: 10, Score: 7},
		{Angle: 20, Score: 7},
		{Angle: 30, Score: 1},
	}
	require.Equal(t, Candidate{Angle: 20, Score: 7}, pickBest(candidates))
	// The input order is left alone.
	require.Equal(t, 0, candidates[0].Angle)
	require.Equal(t, 30, candidates[3].Angle)
}

func TestSearch_ReportsEveryCandidate(t *testing.T) {
	img := barImage(t, 45)

	res, err := Search(context.Background(), NewGrayGrid(img), NewParams())
	require.NoError(t, err)
	require.Len(t, res.Candidates, 37)
	for i, c := range res.Candidates {
		require.Equal(t, i*5, c.Angle)
		require.LessOrEqual(t, c.Score, res.Score)
	}
	require.Equal(t, 45, res.Angle)
	require.Greater(t, res.Prominence, 0.0)
}

func TestSearch_ParallelMatchesSequential(t *testing.T) {
	img := barImage(t, 60)
	g := NewGrayGrid(img)

	seq, err := Search(context.Background(), g, NewParams())
	require.NoError(t, err)

	params := NewParams()
	params.Workers = 8
	par, err := Search(context.Background(), g, params)
	require.NoError(t, err)

	require.Equal(t, seq, par)
}

func TestSearch_FineStep(t *testing.T) {
	img := barImage(t, 42)

	params := &Params{MinDegrees: 30, MaxDegrees: 60, StepDegrees: 1, Workers: 4}
	res, err := Search(context.Background(), NewGrayGrid(img), params)
	require.NoError(t, err)
	require.InDelta(t, 42, res.Angle, 1)
	require.Len(t, res.Candidates, 31)
}

func TestSearch_Errors(t *testing.T) {
	g := NewGrayGrid(newGray(10, 10, 1))

	_, err := Search(context.Background(), g, &Params{MinDegrees: 0, MaxDegrees: 180, StepDegrees: 0})
	require.ErrorIs(t, err, ErrInvalidParams)

	_, err = Search(context.Background(), g, &Params{MinDegrees: 90, MaxDegrees: 10, StepDegrees: 5})
	require.ErrorIs(t, err, ErrInvalidParams)

	_, err = Search(context.Background(), NewGrayGrid(nil), nil)
	require.ErrorIs(t, err, ErrEmptyGrid)

	_, err = BestAngle(NewGrayGrid(newGray(0, 3, 0)))
	require.ErrorIs(t, err, ErrEmptyGrid)
}

func TestSearch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Search(ctx, NewGrayGrid(barImage(t, 30)), nil)
	require.ErrorIs(t, err, context.Canceled)
}
