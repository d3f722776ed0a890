package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Read reads a planning request from the given file, substituting environment variables first.
func Read(filePath string) (*PlanRequest, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return FromReader(filePath, bytes.NewReader(buf))
}

// FromReader reads a request from the given reader. originalPath, if applicable, names the file the
// reader originated from and is only used in error messages.
func FromReader(originalPath string, r io.Reader) (*PlanRequest, error) {
	var req PlanRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		if originalPath != "" {
			return nil, errors.Wrapf(err, "failed to decode request from %s", originalPath)
		}
		return nil, errors.Wrap(err, "failed to decode request from json")
	}
	return process(&req)
}

// FromMap decodes a request from an attribute map such as one received over a generic command
// interface. Keys are the json names of the request fields.
func FromMap(attrs map[string]interface{}) (*PlanRequest, error) {
	var req PlanRequest
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: &req})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attrs); err != nil {
		return nil, errors.Wrap(err, "failed to decode request attributes")
	}
	return process(&req)
}

func process(req *PlanRequest) (*PlanRequest, error) {
	if req.Mode == "" {
		req.Mode = ModeGoal
	}
	if err := req.Validate(""); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	return req, nil
}

// WriteResponse writes resp as indented json.
func WriteResponse(w io.Writer, resp *PlanResponse) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// WriteResponses writes responses as an indented json array.
func WriteResponses(w io.Writer, responses []*PlanResponse) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(responses)
}
