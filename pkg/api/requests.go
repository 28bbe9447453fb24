package api

import (
	"encoding/base64"

	"github.com/papergraph/paperd/pkg/orchestrator"
	"github.com/papergraph/paperd/pkg/perrors"
)

// submitPaperRequest is the POST /v1/tenants/:tenant/papers body. Exactly
// one of RawText, File, or URL must be set.
type submitPaperRequest struct {
	PaperID       string `json:"paper_id"`
	RawText       string `json:"raw_text"`
	Title         string `json:"title"`
	Year          *int   `json:"year"`
	Abstract      string `json:"abstract"`
	FileBase64    string `json:"file"`
	FileExt       string `json:"file_ext"`
	URL           string `json:"url"`
	ForceReingest bool   `json:"forceReingest"`
}

// toSubmitRequest classifies the body into exactly one orchestrator.SourceKind.
func (r submitPaperRequest) toSubmitRequest() (orchestrator.SubmitRequest, error) {
	set := 0
	if r.RawText != "" {
		set++
	}
	if r.FileBase64 != "" {
		set++
	}
	if r.URL != "" {
		set++
	}
	if set != 1 {
		return orchestrator.SubmitRequest{}, perrors.NewInvalidInput("exactly one of raw_text, file, url must be set")
	}

	switch {
	case r.RawText != "":
		return orchestrator.SubmitRequest{
			Kind: orchestrator.SourceRawText, PaperID: r.PaperID, RawText: r.RawText,
			Title: r.Title, Year: r.Year, Abstract: r.Abstract, Force: r.ForceReingest,
		}, nil
	case r.FileBase64 != "":
		buf, err := base64.StdEncoding.DecodeString(r.FileBase64)
		if err != nil {
			return orchestrator.SubmitRequest{}, perrors.NewInvalidInput("file must be base64-encoded")
		}
		return orchestrator.SubmitRequest{
			Kind: orchestrator.SourceFile, PaperID: r.PaperID, FileBuffer: buf, FileExt: r.FileExt, Force: r.ForceReingest,
		}, nil
	default:
		return orchestrator.SubmitRequest{
			Kind: orchestrator.SourceURL, PaperID: r.PaperID, URL: r.URL, Force: r.ForceReingest,
		}, nil
	}
}
