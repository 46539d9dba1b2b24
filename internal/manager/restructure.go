package manager

import (
	"errors"

	"hpsgateway/internal/restructure"
	"hpsgateway/pkg/types"
)

// Restructure post-processes per-page layout results. It runs locally and
// never touches the backend or the admission controller.
func (m *Manager) Restructure(req types.RestructureRequest, logID string) (*types.RestructureResult, error) {
	opts := restructure.DefaultOptions()
	if req.MergeTables != nil {
		opts.MergeTables = *req.MergeTables
	}
	if req.RelevelTitles != nil {
		opts.RelevelTitles = *req.RelevelTitles
	}
	if req.ConcatenatePages != nil {
		opts.Concatenate = *req.ConcatenatePages
	}
	doc, err := restructure.Restructure(req.Pages, opts)
	if err != nil {
		var ve *restructure.ValidationError
		if errors.As(err, &ve) {
			return nil, ErrValidation(ve.Error())
		}
		return nil, wrapError(KindBackendInternal, err, "restructure")
	}
	m.log.Debug().Str("log_id", logID).Int("pages", len(doc.Pages)).Bool("concatenated", doc.Combined != nil).Msg("restructure done")
	return &types.RestructureResult{
		LayoutParsingResults: doc.Pages,
		LayoutParsingResult:  doc.Combined,
	}, nil
}
