package webutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Envelope is the JSON body of every response. It always carries "success"
// and usually "message".
type Envelope map[string]any

// OK builds a successful envelope with a message and optional extra keys
// given as key/value pairs.
func OK(message string, kv ...any) Envelope {
	env := Envelope{"success": true}
	if message != "" {
		env["message"] = message
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			env[key] = kv[i+1]
		}
	}
	return env
}

// ErrorEnvelope renders an HTTPError as a failure envelope.
func ErrorEnvelope(he *HTTPError) Envelope {
	env := Envelope{"success": false, "message": he.Message}
	if len(he.Fields) > 0 {
		env["errors"] = he.Fields
	}
	if detail := he.Detail(); detail != "" {
		env["error"] = detail
	}
	return env
}

func RespondWithError(w http.ResponseWriter, he *HTTPError) {
	RespondWithJSON(w, he.Code, ErrorEnvelope(he))
}

func RespondWithJSON(w http.ResponseWriter, status int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		w.Header().Set(HeaderContentType, ContentTypeJSONUTF8)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"Internal Server Error"}`))
		return
	}

	w.Header().Set(HeaderContentType, ContentTypeJSONUTF8)
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func HasResponseWriterSentHeader(w http.ResponseWriter) bool {
	return w.Header().Get(HeaderContentType) != ""
}

// DecodeJSON reads a single JSON object from the request body into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrBadRequest("Request body must not be empty")
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return FieldError(typeErr.Field, fmt.Sprintf("The %s field has an invalid value.", typeErr.Field))
		}
		return ErrBadRequestWrap("Malformed JSON body", err)
	}
	if dec.More() {
		return ErrBadRequest("Request body must contain a single JSON object")
	}
	return nil
}
