package compiler

import (
	"encoding/json"
	"io"
	"os"

	apperrors "github.com/sptrsv/sptrsv-sim/pkg/errors"
	"github.com/sptrsv/sptrsv-sim/pkg/writer"
)

var mecWriter = writer.JSONWriter[MECMap]{Indent: "    "}

// Write encodes the MEC map as JSON, matching the reference compiler's
// {node_id: mec_value} export shape.
func (r *Result) Write(w io.Writer) error {
	if err := mecWriter.Write(r.MEC, w); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "encode mec map", err)
	}
	return nil
}

// WriteFile writes the MEC map as JSON to path.
func (r *Result) WriteFile(path string) error {
	if err := mecWriter.WriteToFile(r.MEC, path); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "create mec map file", err)
	}
	return nil
}

// LoadMECMap reads a previously compiled MEC map from JSON.
func LoadMECMap(path string) (MECMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIOFailure, "read mec map file", err)
	}
	var m MECMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeMalformedDag, "decode mec map json", err)
	}
	return m, nil
}
