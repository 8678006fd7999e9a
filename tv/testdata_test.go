package tv_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/borzacchiello/alivetv/parser"
	"github.com/borzacchiello/alivetv/smt"
	"github.com/borzacchiello/alivetv/tv"
)

// TestTxtarCorpus drives every named scenario in testdata/transforms.txtar
// through the verifier; a file name ending in "-mismatch.tv" is expected
// to fail refinement, every other file is expected to pass cleanly.
func TestTxtarCorpus(t *testing.T) {
	ar, err := txtar.ParseFile(filepath.Join("..", "testdata", "transforms.txtar"))
	require.NoError(t, err)
	require.NotEmpty(t, ar.Files)

	for _, f := range ar.Files {
		f := f
		t.Run(f.Name, func(t *testing.T) {
			b := smt.NewBuilder()
			transforms, err := parser.Parse(string(f.Data), b)
			require.NoError(t, err)
			require.Len(t, transforms, 1)

			solver := smt.NewSolver(b)
			defer solver.Close()

			errs, err := tv.Verify(context.Background(), b, solver, transforms[0], tv.Options{})
			require.NoError(t, err)

			wantFailure := strings.HasSuffix(f.Name, "-mismatch.tv")
			require.Equal(t, wantFailure, errs.HasFailures(), "%s: %s", f.Name, errs)
		})
	}
}
