package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	qrmodels "io.winapps.qrbackend/internal/models/qrcode"
	"io.winapps.qrbackend/internal/storage"
)

var errNotScalar = errors.New("value is not a json scalar")

// isJSONContentType matches application/json and application/*+json
func isJSONContentType(ct string) bool {
	ct = strings.ToLower(ct)
	if ct == "application/json" {
		return true
	}
	return strings.HasPrefix(ct, "application/") && strings.HasSuffix(ct, "+json")
}

// parseEntryID runs the body through the validation steps in order and
// returns the coerced, filename-safe identifier.
func parseEntryID(contentType string, body []byte) (string, error) {
	if !isJSONContentType(contentType) {
		return "", newRequestError(ErrInvalidBody, CodeNotJSONContentType, nil)
	}

	var req qrmodels.GenerateQRCodeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", newRequestError(ErrInvalidBody, CodeMalformedBody, err)
	}
	// a literal null decodes into a nil map
	if req == nil {
		return "", newRequestError(ErrInvalidBody, CodeMalformedBody, nil)
	}

	raw, ok := req[qrmodels.EntryIDField]
	if !ok {
		return "", newRequestError(ErrMissingIdentifier, CodeMissingIdentifier, nil)
	}

	entryID, err := coerceScalar(raw)
	if err != nil {
		return "", newRequestError(ErrInvalidIdentifier, CodeIdentifierNotScalar, err)
	}
	if entryID == "" {
		return "", newRequestError(ErrEmptyIdentifier, CodeEmptyIdentifier, nil)
	}

	if err := storage.ValidateName(entryID); err != nil {
		return "", newRequestError(ErrInvalidIdentifier, CodeIdentifierUnsafe, err)
	}
	return entryID, nil
}

// coerceScalar converts a JSON string, number or boolean to its string form.
// Numbers keep their literal text.
func coerceScalar(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}

	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		return "", errNotScalar
	}
}
