package ports

import (
	"context"

	"github.com/shahhaard47/latenteq/domain/model"
	"github.com/shahhaard47/latenteq/domain/table"
)

// LatentFitterPort fits a constrained latent-variable model to wide data.
// The fitter owns model construction and estimate extraction; the numerical
// optimization underneath is an engine detail callers never see past the
// FittedResult. A fit that does not converge is an error, never a retry.
type LatentFitterPort interface {
	FitWide(ctx context.Context, w *table.Wide, spec model.LatentSpec) (*model.FittedResult, error)
}

// MixedFitterPort fits a linear mixed model to long data. Same contract as
// the latent fitter: specification in, named estimates out, convergence
// failures surfaced verbatim.
type MixedFitterPort interface {
	FitLong(ctx context.Context, l *table.Long, spec model.MixedSpec) (*model.FittedResult, error)
}
